// dlq-reprocess возвращает сообщения из loco.dlq в рабочие топики.
//
// В DLQ попадают два вида сообщений: события, которые не смог обработать
// консьюмер (original_topic/original_value), и события, которые outbox-воркер
// не смог опубликовать (конверт с вложенным исходным событием). Первые
// возвращаются в исходный топик как есть, вторые заново заворачиваются в
// outbox-конверт и маршрутизируются по типу агрегата.
//
// По умолчанию утилита работает в dry-run и только печатает кандидатов;
// реальная публикация включается флагом -execute.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/locoloco/internal/messaging/kafka"
)

const (
	defaultScanLimit   = 100
	defaultIdleTimeout = 2 * time.Second
)

type config struct {
	brokers     []string
	dlqTopic    string
	limit       int
	execute     bool
	idleTimeout time.Duration
}

func readConfig(args []string, getenv func(string) string) (config, error) {
	flags := flag.NewFlagSet("dlq-reprocess", flag.ContinueOnError)

	var (
		brokersRaw  = flags.String("brokers", "", "брокеры Kafka через запятую (fallback: LOCO_KAFKA_BROKERS)")
		dlqTopic    = flags.String("dlq-topic", kafka.TopicDeadLetterQueue, "DLQ-топик для сканирования")
		limit       = flags.Int("limit", defaultScanLimit, "максимум сообщений за запуск")
		execute     = flags.Bool("execute", false, "публиковать replay; без флага только dry-run")
		idleTimeout = flags.Duration("idle-timeout", defaultIdleTimeout, "ожидание новых сообщений в партиции")
	)
	if err := flags.Parse(args); err != nil {
		return config{}, err
	}

	raw := strings.TrimSpace(*brokersRaw)
	if raw == "" {
		raw = getenv("LOCO_KAFKA_BROKERS")
	}

	cfg := config{
		dlqTopic:    strings.TrimSpace(*dlqTopic),
		limit:       *limit,
		execute:     *execute,
		idleTimeout: *idleTimeout,
	}
	for _, chunk := range strings.Split(raw, ",") {
		if broker := strings.TrimSpace(chunk); broker != "" {
			cfg.brokers = append(cfg.brokers, broker)
		}
	}

	switch {
	case len(cfg.brokers) == 0:
		return config{}, fmt.Errorf("kafka brokers are required (-brokers or LOCO_KAFKA_BROKERS)")
	case cfg.dlqTopic == "":
		return config{}, fmt.Errorf("dlq-topic is required")
	case cfg.limit <= 0:
		return config{}, fmt.Errorf("limit must be > 0")
	case cfg.idleTimeout <= 0:
		return config{}, fmt.Errorf("idle-timeout must be > 0")
	}

	return cfg, nil
}

// replay — готовое к публикации сообщение.
type replay struct {
	topic string
	key   string
	value []byte
}

// consumerRecord — формат, в котором консьюмер хоронит необработанное сообщение.
type consumerRecord struct {
	OriginalTopic string `json:"original_topic"`
	OriginalKey   string `json:"original_key"`
	OriginalValue string `json:"original_value"`
}

// outboxRecord — внешний конверт outbox-паблишера.
type outboxRecord struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
}

// outboxFailure — вложенный конверт outbox-воркера с исходным событием.
type outboxFailure struct {
	OutboxID      string          `json:"outbox_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishError  string          `json:"publish_error"`
}

// topicForAggregate маршрутизирует replay так же, как outbox-паблишер.
func topicForAggregate(aggregateType string) string {
	if aggregateType == kafka.AggregateTypeRestaurant {
		return kafka.TopicRestaurantEvents
	}
	return kafka.TopicOrderEvents
}

// decodeReplay разбирает DLQ-сообщение. Возвращает ok=false для сообщений,
// которые replay не подлежат (чужой формат, пустое тело).
func decodeReplay(value []byte) (replay, bool, error) {
	var fromConsumer consumerRecord
	if err := json.Unmarshal(value, &fromConsumer); err == nil && fromConsumer.OriginalValue != "" {
		topic := strings.TrimSpace(fromConsumer.OriginalTopic)
		if topic == "" {
			return replay{}, false, fmt.Errorf("consumer dlq record has no original topic")
		}
		return replay{
			topic: topic,
			key:   fromConsumer.OriginalKey,
			value: []byte(fromConsumer.OriginalValue),
		}, true, nil
	}

	var record outboxRecord
	if err := json.Unmarshal(value, &record); err != nil || len(record.Payload) == 0 {
		return replay{}, false, nil
	}

	var failure outboxFailure
	if err := json.Unmarshal(record.Payload, &failure); err != nil {
		return replay{}, false, fmt.Errorf("decode outbox failure envelope: %w", err)
	}
	if len(failure.Payload) == 0 {
		return replay{}, false, fmt.Errorf("outbox failure envelope has no original event")
	}

	aggregateType := failure.AggregateType
	if aggregateType == "" {
		aggregateType = record.AggregateType
	}
	aggregateID := failure.AggregateID
	if aggregateID == "" {
		aggregateID = record.AggregateID
	}

	envelope, err := json.Marshal(struct {
		ID            string          `json:"id"`
		AggregateType string          `json:"aggregate_type"`
		AggregateID   string          `json:"aggregate_id"`
		EventType     string          `json:"event_type"`
		Payload       json.RawMessage `json:"payload"`
		PublishedAt   time.Time       `json:"published_at"`
	}{
		ID:            failure.OutboxID,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     failure.EventType,
		Payload:       failure.Payload,
		PublishedAt:   time.Now().UTC(),
	})
	if err != nil {
		return replay{}, false, fmt.Errorf("encode replay envelope: %w", err)
	}

	key := aggregateID
	if key == "" {
		key = failure.OutboxID
	}

	return replay{
		topic: topicForAggregate(aggregateType),
		key:   key,
		value: envelope,
	}, true, nil
}

// stats — итог одного запуска.
type stats struct {
	scanned  int
	replayed int
	skipped  int
}

func (s *stats) add(other stats) {
	s.scanned += other.scanned
	s.replayed += other.replayed
	s.skipped += other.skipped
}

// partitionSource — читающая сторона одной партиции DLQ.
type partitionSource interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
}

// drainPartition вычитывает партицию до endOffset, лимита или простоя и
// передаёт каждого кандидата в emit.
func drainPartition(
	ctx context.Context,
	source partitionSource,
	endOffset int64,
	limit int,
	idleTimeout time.Duration,
	emit func(replay) error,
) (stats, error) {
	var result stats

	idle := time.NewTimer(idleTimeout)
	defer idle.Stop()

	for result.scanned < limit {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case consumerErr := <-source.Errors():
			if consumerErr != nil {
				return result, fmt.Errorf("dlq consumer: %w", consumerErr)
			}
		case msg, ok := <-source.Messages():
			if !ok || msg == nil {
				return result, nil
			}
			if msg.Offset >= endOffset {
				return result, nil
			}

			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(idleTimeout)

			result.scanned++
			candidate, ok, err := decodeReplay(msg.Value)
			if err != nil {
				result.skipped++
				log.WithError(err).WithFields(log.Fields{
					"partition": msg.Partition,
					"offset":    msg.Offset,
				}).Warn("skip undecodable dlq message")
			} else if !ok {
				result.skipped++
			} else if err := emit(candidate); err != nil {
				return result, err
			} else {
				result.replayed++
			}

			if msg.Offset+1 >= endOffset {
				return result, nil
			}
		case <-idle.C:
			return result, nil
		}
	}

	return result, nil
}

func run(ctx context.Context, cfg config) error {
	clientConfig := sarama.NewConfig()
	clientConfig.Consumer.Return.Errors = true

	client, err := sarama.NewClient(cfg.brokers, clientConfig)
	if err != nil {
		return fmt.Errorf("connect kafka client: %w", err)
	}
	defer func() { _ = client.Close() }()

	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		return fmt.Errorf("create dlq consumer: %w", err)
	}
	defer func() { _ = consumer.Close() }()

	emit := logCandidate
	if cfg.execute {
		producer, err := kafka.NewProducer(cfg.brokers)
		if err != nil {
			return err
		}
		defer func() { _ = producer.Close() }()
		emit = func(candidate replay) error {
			return producer.PublishEvent(candidate.topic, candidate.key, json.RawMessage(candidate.value))
		}
	}

	partitions, err := client.Partitions(cfg.dlqTopic)
	if err != nil {
		return fmt.Errorf("list partitions of %s: %w", cfg.dlqTopic, err)
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	var total stats
	for _, partition := range partitions {
		if total.scanned >= cfg.limit {
			break
		}

		oldest, err := client.GetOffset(cfg.dlqTopic, partition, sarama.OffsetOldest)
		if err != nil {
			return fmt.Errorf("oldest offset of partition %d: %w", partition, err)
		}
		newest, err := client.GetOffset(cfg.dlqTopic, partition, sarama.OffsetNewest)
		if err != nil {
			return fmt.Errorf("newest offset of partition %d: %w", partition, err)
		}
		if newest <= oldest {
			continue
		}

		pc, err := consumer.ConsumePartition(cfg.dlqTopic, partition, oldest)
		if err != nil {
			return fmt.Errorf("consume partition %d: %w", partition, err)
		}

		partStats, drainErr := drainPartition(ctx, pc, newest, cfg.limit-total.scanned, cfg.idleTimeout, emit)
		_ = pc.Close()
		total.add(partStats)
		if drainErr != nil {
			return drainErr
		}
	}

	mode := "dry-run"
	if cfg.execute {
		mode = "execute"
	}
	log.WithFields(log.Fields{
		"mode":     mode,
		"scanned":  total.scanned,
		"replayed": total.replayed,
		"skipped":  total.skipped,
	}).Info("dlq replay finished")

	return nil
}

func logCandidate(candidate replay) error {
	log.WithFields(log.Fields{
		"target_topic": candidate.topic,
		"key":          candidate.key,
	}).Info("dlq replay candidate")
	return nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	cfg, err := readConfig(os.Args[1:], os.Getenv)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := run(context.Background(), cfg); err != nil {
		log.WithError(err).Fatal("dlq replay failed")
	}
}
