package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/wisdom/internal/queue"
	"github.com/OFFIS-RIT/wisdom/internal/server"
	"github.com/OFFIS-RIT/wisdom/internal/storage"
	"github.com/OFFIS-RIT/wisdom/internal/util"
	"github.com/OFFIS-RIT/wisdom/pkg/common"
	"github.com/OFFIS-RIT/wisdom/pkg/loader/s3"
	"github.com/OFFIS-RIT/wisdom/pkg/logger"
	"github.com/OFFIS-RIT/wisdom/pkg/logger/console"

	amqp "github.com/rabbitmq/amqp091-go"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  debug,
		Prefix: "worker",
	})
	logger.Init(consoleLogger)

	// Init s3 client
	client, err := storage.NewS3Client(ctx)
	if err != nil {
		logger.Fatal("Could not create S3 client", "err", err)
	}

	// Snapshot store shared with the server
	snapshots, closeStore, err := server.NewSnapshotStore(ctx)
	if err != nil {
		logger.Fatal("Could not set up snapshot store", "err", err)
	}
	defer closeStore()

	handler := &queue.AnalysisHandler{
		Source: s3.NewS3ModelSourceWithClient(storage.Bucket(), client),
		Store:  snapshots,
		Upload: func(ctx context.Context, sessionID string, report *common.Report) (string, error) {
			return util.RetryWithContext(ctx, 3, 500*time.Millisecond, func(ctx context.Context) (string, error) {
				return storage.PutReport(ctx, client, sessionID, report)
			})
		},
		DecayFactor: server.DecayFactorFromEnv(),
	}

	// Init rabbitmq
	conn := queue.Init()
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	// prefetch=1: one analysis at a time per worker
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, true); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := consumerCh.Consume(
		queue.AnalysisQueue,
		fmt.Sprintf("%s_consumer", queue.AnalysisQueue),
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.AnalysisQueue, "err", err)
	}

	logger.Info("Listening for messages", "queue", queue.AnalysisQueue)

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Info("Message channel closed", "queue", queue.AnalysisQueue)
					stop()
					return
				}
				process(ctx, handler, ch, msg)
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}

func process(ctx context.Context, handler *queue.AnalysisHandler, ch *amqp.Channel, msg amqp.Delivery) {
	startTime := time.Now()
	logger.Info("Received message", "queue", queue.AnalysisQueue, "retries", queue.Retries(msg.Headers))

	if err := handler.ProcessAnalysisMessage(ctx, msg.Body); err != nil {
		logger.Error("Error processing message", "queue", queue.AnalysisQueue, "err", err)
		queue.HandleProcessingError(ch, &msg, queue.AnalysisQueue)
		return
	}

	if err := msg.Ack(false); err != nil {
		logger.Error("Failed to ack message", "err", err)
	}
	logger.Info("Message processed successfully", "queue", queue.AnalysisQueue, "duration", time.Since(startTime))
}
