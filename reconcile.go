package main

import (
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"github.com/yuichiro-h/sqs-alarm-reconciler/config"
	"github.com/yuichiro-h/sqs-alarm-reconciler/log"
	"go.uber.org/zap"
)

// Sentinel values the build-step environment injects when a variable was
// never set. Both fail validation.
const (
	sentinelQueueName = "not-provided"
	sentinelEventName = "unknown"
)

var (
	ErrMissingQueueName  = errors.New("queue name not provided")
	ErrUnrecognizedEvent = errors.New("unrecognized event kind")
	ErrQueueNotFound     = errors.New("queue does not exist")
)

type cloudWatchAPI interface {
	DescribeAlarms(*cloudwatch.DescribeAlarmsInput) (*cloudwatch.DescribeAlarmsOutput, error)
	PutMetricAlarm(*cloudwatch.PutMetricAlarmInput) (*cloudwatch.PutMetricAlarmOutput, error)
	DeleteAlarms(*cloudwatch.DeleteAlarmsInput) (*cloudwatch.DeleteAlarmsOutput, error)
	TagResource(*cloudwatch.TagResourceInput) (*cloudwatch.TagResourceOutput, error)
}

type sqsAPI interface {
	GetQueueUrl(*sqs.GetQueueUrlInput) (*sqs.GetQueueUrlOutput, error)
}

type stsAPI interface {
	GetCallerIdentity(*sts.GetCallerIdentityInput) (*sts.GetCallerIdentityOutput, error)
}

type Reconciler struct {
	cw  cloudWatchAPI
	sqs sqsAPI
	sts stsAPI
	cfg *config.Config
}

func NewReconciler(sess *session.Session, cfg *config.Config) *Reconciler {
	return &Reconciler{
		cw:  cloudwatch.New(sess),
		sqs: sqs.New(sess),
		sts: sts.New(sess),
		cfg: cfg,
	}
}

type Input struct {
	QueueName string
	Event     EventKind
}

type Action string

const (
	ActionCreated Action = "created"
	ActionDeleted Action = "deleted"
	ActionNone    Action = "none"
)

type Result struct {
	Action    Action
	AlarmName string
	// Warnings holds non-fatal failures (tagging). The reconcile itself
	// succeeded when these are present.
	Warnings []string
}

// Reconcile converges the alarm state for a single queue lifecycle event.
// Every invocation is stateless; the only persisted state is the alarm
// registry itself, re-read on each call.
func (r *Reconciler) Reconcile(in Input) (*Result, error) {
	if in.QueueName == "" || in.QueueName == sentinelQueueName {
		return nil, errors.WithStack(ErrMissingQueueName)
	}

	switch in.Event {
	case EventCreated:
		return r.ensureAlarm(in.QueueName)
	case EventDeleted:
		return r.removeAlarm(in.QueueName)
	}

	return nil, errors.WithStack(ErrUnrecognizedEvent)
}

func (r *Reconciler) ensureAlarm(queueName string) (*Result, error) {
	// The queue may already be gone if the deletion event overtook us.
	if err := r.lookupQueue(queueName); err != nil {
		return nil, err
	}

	name := AlarmName(r.cfg.Alarm.NamePrefix, queueName)
	exists, err := r.alarmExists(name)
	if err != nil {
		return nil, err
	}
	if exists {
		// Upsert regardless so the alarm converges to the latest
		// configuration.
		log.Get().Info("alarm already exists, updating",
			zap.String("alarm_name", name))
	}

	_, err = r.cw.PutMetricAlarm(newPutMetricAlarmInput(
		name, queueName, *r.cfg.Alarm.Threshold, r.cfg.Alarm.Actions))
	if err != nil {
		return nil, errors.Wrapf(err, "put metric alarm %s", name)
	}
	log.Get().Info("put alarm",
		zap.String("alarm_name", name),
		zap.String("queue_name", queueName),
		zap.Float64("threshold", *r.cfg.Alarm.Threshold))

	result := &Result{Action: ActionCreated, AlarmName: name}
	if err := r.tagAlarm(name, queueName); err != nil {
		// Tagging is decoration. Record and move on.
		log.Get().Error("tag alarm",
			zap.String("alarm_name", name),
			zap.String("cause", err.Error()))
		result.Warnings = append(result.Warnings, errors.Wrapf(err, "tag alarm %s", name).Error())
	}

	return result, nil
}

func (r *Reconciler) removeAlarm(queueName string) (*Result, error) {
	name := AlarmName(r.cfg.Alarm.NamePrefix, queueName)
	exists, err := r.alarmExists(name)
	if err != nil {
		return nil, err
	}
	if !exists {
		// Queues created before this tool was deployed have no alarm.
		log.Get().Info("alarm already absent",
			zap.String("alarm_name", name))
		return &Result{Action: ActionNone, AlarmName: name}, nil
	}

	_, err = r.cw.DeleteAlarms(&cloudwatch.DeleteAlarmsInput{
		AlarmNames: []*string{aws.String(name)},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "delete alarm %s", name)
	}
	log.Get().Info("deleted alarm", zap.String("alarm_name", name))

	return &Result{Action: ActionDeleted, AlarmName: name}, nil
}

// lookupQueue confirms the queue exists. Transient errors are retried for
// up to LookupMaxElapsed seconds; a definitive not-found never is.
func (r *Reconciler) lookupQueue(queueName string) error {
	op := func() error {
		_, err := r.sqs.GetQueueUrl(&sqs.GetQueueUrlInput{
			QueueName: aws.String(queueName),
		})
		if err != nil {
			if aerr, ok := err.(awserr.Error); ok && aerr.Code() == sqs.ErrCodeQueueDoesNotExist {
				return backoff.Permanent(errors.Wrap(ErrQueueNotFound, queueName))
			}
			return err
		}
		return nil
	}

	var b backoff.BackOff = &backoff.StopBackOff{}
	if r.cfg.Alarm.LookupMaxElapsed > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.MaxElapsedTime = time.Duration(r.cfg.Alarm.LookupMaxElapsed) * time.Second
		b = eb
	}
	if err := backoff.Retry(op, b); err != nil {
		return errors.Wrapf(err, "lookup queue %s", queueName)
	}

	return nil
}

func (r *Reconciler) alarmExists(name string) (bool, error) {
	out, err := r.cw.DescribeAlarms(&cloudwatch.DescribeAlarmsInput{
		AlarmNames: []*string{aws.String(name)},
	})
	if err != nil {
		return false, errors.Wrapf(err, "describe alarm %s", name)
	}

	return len(out.MetricAlarms) > 0, nil
}

func (r *Reconciler) tagAlarm(name, queueName string) error {
	identity, err := r.sts.GetCallerIdentity(&sts.GetCallerIdentityInput{})
	if err != nil {
		return errors.WithStack(err)
	}

	_, err = r.cw.TagResource(&cloudwatch.TagResourceInput{
		ResourceARN: aws.String(alarmARN(r.cfg.AWS.Region, *identity.Account, name)),
		Tags:        alarmTags(queueName),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}
