package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/locoloco/internal/domain"
	"github.com/vladislavdragonenkov/locoloco/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/locoloco/internal/service/notify"
)

// Переменные окружения консьюмера уведомлений.
const (
	envKafkaBrokers  = "LOCO_KAFKA_BROKERS"
	envConsumerGroup = "LOCO_NOTIFICATOR_GROUP"

	defaultConsumerGroup = "loco-notificator"
	defaultMaxRetries    = 3
)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

// newWelcomeHandler шлёт приветственное письмо на каждое restaurant.created.
// Остальные типы событий подтверждаются без обработки.
func newWelcomeHandler(notifier domain.Notifier, logger *log.Entry) kafka.MessageHandler {
	return func(_ context.Context, message *sarama.ConsumerMessage) error {
		event, err := kafka.ParseRestaurantEvent(message)
		if err != nil {
			return err
		}

		if event.EventType != kafka.EventTypeRestaurantCreated {
			return nil
		}

		if err := notifier.SendWelcome(event.OwnerEmail); err != nil {
			return err
		}

		logger.WithFields(log.Fields{
			"restaurant_id": event.RestaurantID,
			"owner":         event.OwnerEmail,
		}).Info("welcome email processed")
		return nil
	}
}

func main() {
	setupLogger()
	logger := log.WithField("component", "notificator")

	brokersRaw := strings.TrimSpace(os.Getenv(envKafkaBrokers))
	if brokersRaw == "" {
		logger.Fatalf("%s is required", envKafkaBrokers)
	}
	brokers := strings.Split(brokersRaw, ",")
	for i := range brokers {
		brokers[i] = strings.TrimSpace(brokers[i])
	}

	group := strings.TrimSpace(os.Getenv(envConsumerGroup))
	if group == "" {
		group = defaultConsumerGroup
	}

	notifier := notify.NewLogNotifier(logger.WithField("component", "notifier"))
	handler := newWelcomeHandler(notifier, logger)

	dlqProducer, err := kafka.NewProducer(brokers)
	if err != nil {
		logger.WithError(err).Warn("dlq producer unavailable, failed events will not be quarantined")
		dlqProducer = nil
	}

	consumer, err := kafka.NewConsumerWithDLQ(
		brokers,
		group,
		[]string{kafka.TopicRestaurantEvents},
		handler,
		dlqProducer,
		defaultMaxRetries,
	)
	if err != nil {
		logger.WithError(err).Fatal("не удалось создать kafka consumer")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithFields(log.Fields{
		"brokers": brokers,
		"group":   group,
		"topic":   kafka.TopicRestaurantEvents,
	}).Info("запускаем notificator")

	if err := consumer.Start(ctx); err != nil {
		logger.WithError(err).Fatal("не удалось запустить consumer")
	}

	<-ctx.Done()
	logger.Info("получен сигнал остановки")

	if err := consumer.Stop(); err != nil {
		logger.WithError(err).Warn("failed to stop consumer")
	}

	logger.Info("notificator остановлен")
}
