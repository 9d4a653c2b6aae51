package main

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/pkg/errors"
	"github.com/yuichiro-h/sqs-alarm-reconciler/config"
	"github.com/yuichiro-h/sqs-alarm-reconciler/log"
	"go.uber.org/zap"
)

type poller struct {
	sqs        *sqs.SQS
	reconciler *Reconciler
	cfg        *config.Config
}

// drain consumes the lifecycle-event queue until it is empty. Messages that
// reconciled successfully (or that carry nothing actionable) are deleted;
// failed ones are left for redelivery.
func (p *poller) drain() error {
	queueURL := p.cfg.AWS.EventSqsURL
	if queueURL == "" {
		return errors.New("aws.event_sqs_url is not configured")
	}

	for {
		receiveMessageOut, err := p.sqs.ReceiveMessage(&sqs.ReceiveMessageInput{
			MaxNumberOfMessages: aws.Int64(10),
			QueueUrl:            aws.String(queueURL),
		})
		if err != nil {
			return errors.WithStack(err)
		}
		if len(receiveMessageOut.Messages) == 0 {
			log.Get().Debug("not found messages", zap.String("queue_url", queueURL))
			break
		}

		var handled []*string
		for _, msg := range receiveMessageOut.Messages {
			done, err := p.handle(*msg.Body)
			if err != nil {
				log.Get().Error("handle event",
					zap.String("cause", err.Error()))
			}
			if done {
				handled = append(handled, msg.ReceiptHandle)
			}
		}

		for _, h := range handled {
			_, err = p.sqs.DeleteMessage(&sqs.DeleteMessageInput{
				QueueUrl:      aws.String(queueURL),
				ReceiptHandle: h,
			})
			if err != nil {
				log.Get().Error(err.Error())
				continue
			}
		}
	}

	return nil
}

// handle processes one SNS-wrapped CloudTrail record. The bool reports
// whether the message should be deleted from the queue.
func (p *poller) handle(body string) (bool, error) {
	event, err := ParseQueueEvent(body)
	if err != nil {
		// Malformed messages never become parseable. Drop them.
		return true, err
	}

	if event.Failed() {
		log.Get().Info("skip failed API call",
			zap.String("event_name", event.Detail.EventName),
			zap.String("error_code", event.Detail.ErrorCode))
		return true, nil
	}

	kind := event.Kind()
	if kind == EventUnknown {
		log.Get().Info("skip unhandled event",
			zap.String("event_name", event.Detail.EventName))
		return true, nil
	}

	queueName := event.QueueName()
	if queueName == "" {
		return true, errors.Errorf("no queue name in %s event", event.Detail.EventName)
	}
	if !p.cfg.ManagesQueue(queueName) {
		log.Get().Info("skip unmanaged queue",
			zap.String("queue_name", queueName))
		return true, nil
	}

	result, err := p.reconciler.Reconcile(Input{
		QueueName: queueName,
		Event:     kind,
	})
	if err != nil {
		if errors.Cause(err) == ErrQueueNotFound {
			// The queue vanished between event delivery and now.
			// Redelivery would hit the same race, so drop the message.
			return true, err
		}
		return false, err
	}

	if result.Action != ActionNone {
		if err := notifyResult(queueName, result); err != nil {
			log.Get().Error("notify",
				zap.String("queue_name", queueName),
				zap.String("cause", err.Error()))
		}
	}

	return true, nil
}
