package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/thomas-x-69/exams-sub001/internal/bank"
	"github.com/thomas-x-69/exams-sub001/internal/config"
	"github.com/thomas-x-69/exams-sub001/internal/database"
	"github.com/thomas-x-69/exams-sub001/internal/exam"
	logger "github.com/thomas-x-69/exams-sub001/internal/logging"
	"github.com/thomas-x-69/exams-sub001/internal/repository"
	"github.com/thomas-x-69/exams-sub001/internal/router"
	"github.com/thomas-x-69/exams-sub001/internal/services"
)

func main() {
	// Initialize Logger
	log, err := logger.Init(".")
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	// Initialize Configuration
	if err := config.Init(".", log); err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Initialize Database
	database.Init(log)

	// Load the question bank at startup
	questionBank, err := bank.Load(config.Conf.Exam.QuestionsFile, config.Conf.Exam.DefaultSubject)
	if err != nil {
		log.Fatal("Failed to load question bank", zap.Error(err))
	}

	// Wire the result pipeline: store, recording gateway, aggregator
	resultStore := repository.NewResultStore(log)
	gateway := services.NewSubmissionGateway(log,
		config.Conf.Submission.Endpoint,
		time.Duration(config.Conf.Submission.TimeoutSeconds)*time.Second)
	aggregator := exam.NewAggregator(resultStore, gateway, log)

	payments := services.NewPaymentProvider(log, config.Conf.Payment.Provider, config.Conf.Payment.Currency)

	// Start the abandoned-attempt reaper
	reaper := services.NewScheduler(log, time.Duration(config.Conf.Exam.AbandonedMaxAge)*time.Hour)
	reaper.Start()

	// Setup router, passing the logger to it
	r := router.Setup(log, questionBank, aggregator, payments)

	// Start the Gin server
	port := ":" + config.Conf.Server.Port
	log.Info("Server listening on http://localhost" + port)
	if err := r.Run(port); err != nil {
		log.Fatal("Failed to run Gin server", zap.Error(err))
	}
}
