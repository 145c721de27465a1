// internal/handlers/history.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/thomas-x-69/exams-sub001/internal/repository"
)

// HistoryHandler serves the past-results view: listing, filtering, sorting,
// deletion and score charts. The local result store is the sole source of
// truth for past results; there is no authoritative server-side copy
// elsewhere.
type HistoryHandler struct {
	log *zap.Logger
}

func NewHistoryHandler(log *zap.Logger) *HistoryHandler {
	return &HistoryHandler{log: log}
}

// List returns persisted results, newest first by default.
// Query params: subject (filter), sort (newest|oldest|score).
func (h *HistoryHandler) List(c *gin.Context) {
	subject := c.Query("subject")
	sortBy := c.Query("sort")

	results, err := repository.ListResults(c.Request.Context(), subject, sortBy, h.log)
	if err != nil {
		h.log.Error("Failed to list results", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// Get returns one persisted result by its storage key.
func (h *HistoryHandler) Get(c *gin.Context) {
	result, err := repository.GetResult(c.Request.Context(), c.Param("key"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Delete removes one result from the history.
func (h *HistoryHandler) Delete(c *gin.Context) {
	if err := repository.DeleteResult(c.Request.Context(), c.Param("key")); err != nil {
		h.log.Error("Failed to delete result", zap.Error(err), zap.String("key", c.Param("key")))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete result"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Charts returns the echarts option payloads for the analytics view: a score
// timeline and the per-subject averages.
func (h *HistoryHandler) Charts(c *gin.Context) {
	subject := c.Query("subject")

	timelineData, err := repository.GetScoreTimeline(c.Request.Context(), subject)
	if err != nil {
		h.log.Error("Failed to get score timeline", zap.Error(err), zap.String("subject", subject))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load timeline data"})
		return
	}

	averages, err := repository.GetSubjectAverages(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to get subject averages", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load subject averages"})
		return
	}

	timelineChart := generateTimelineChart(timelineData)
	averagesChart := generateAveragesChart(averages)

	timelineJSON, _ := json.Marshal(timelineChart.JSON())
	averagesJSON, _ := json.Marshal(averagesChart.JSON())

	c.JSON(http.StatusOK, gin.H{
		"timeline": json.RawMessage(timelineJSON),
		"averages": json.RawMessage(averagesJSON),
	})
}

func generateTimelineChart(data []repository.TimelineDataPoint) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Score Over Time",
			Subtitle: "Composite score per finished attempt",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type: "time",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:  "value",
			Scale: opts.Bool(true),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)

	items := make([]opts.LineData, 0)
	for _, point := range data {
		items = append(items, opts.LineData{Value: []interface{}{point.Date, point.Value}})
	}

	line.AddSeries("Total Score", items).SetSeriesOptions(charts.WithLineStyleOpts(opts.LineStyle{Width: 2}))
	return line
}

func generateAveragesChart(data []repository.SubjectAverage) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "Average Score by Subject",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type: "value",
			Name: "average score",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	subjects := make([]string, 0, len(data))
	items := make([]opts.BarData, 0, len(data))
	for _, row := range data {
		subjects = append(subjects, row.Subject)
		items = append(items, opts.BarData{Value: row.Average})
	}

	bar.SetXAxis(subjects).AddSeries("Average", items)
	return bar
}
