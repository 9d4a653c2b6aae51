package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"github.com/yuichiro-h/sqs-alarm-reconciler/config"
	"github.com/yuichiro-h/sqs-alarm-reconciler/log"
	"go.uber.org/zap"
)

func main() {
	app := cli.NewApp()
	app.Name = "sqs-alarm-reconciler"
	app.Usage = "keep CloudWatch queue-depth alarms in sync with SQS queue lifecycle"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config",
			EnvVar: "CONFIG",
		},
	}
	app.Before = func(ctx *cli.Context) error {
		if err := config.Load(ctx.String("config")); err != nil {
			return err
		}
		if err := log.Init(config.Get().Debug); err != nil {
			return err
		}

		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:  "reconcile",
			Usage: "apply a single queue lifecycle event",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:   "queue-name",
					EnvVar: "QUEUE_NAME",
					Value:  sentinelQueueName,
				},
				cli.StringFlag{
					Name:   "event-name",
					EnvVar: "EVENT_NAME",
					Value:  sentinelEventName,
				},
				cli.StringFlag{
					Name:   "region",
					EnvVar: "REGION",
				},
				cli.StringFlag{
					Name:   "threshold",
					EnvVar: "THRESHOLD",
				},
				cli.StringFlag{
					Name:   "sns-topic-arn",
					EnvVar: "SNS_TOPIC_ARN",
				},
			},
			Action: reconcileAction,
		},
		{
			Name:   "poll",
			Usage:  "drain queue lifecycle events from the configured SQS queue",
			Action: pollAction,
		},
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

func reconcileAction(ctx *cli.Context) error {
	cfg := config.Get()
	if v := ctx.String("region"); v != "" {
		cfg.AWS.Region = v
	}
	if v := ctx.String("threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			log.Get().Error("invalid threshold", zap.String("threshold", v))
			return errors.Wrapf(err, "parse threshold %q", v)
		}
		cfg.Alarm.Threshold = &t
	}
	if v := ctx.String("sns-topic-arn"); v != "" {
		cfg.Alarm.Actions = append(cfg.Alarm.Actions, v)
	}

	queueName := ctx.String("queue-name")
	if queueName != "" && queueName != sentinelQueueName && !cfg.ManagesQueue(queueName) {
		log.Get().Info("skip unmanaged queue", zap.String("queue_name", queueName))
		return nil
	}

	sess, err := session.NewSession(aws.NewConfig().WithRegion(cfg.AWS.Region))
	if err != nil {
		return errors.WithStack(err)
	}

	result, err := NewReconciler(sess, cfg).Reconcile(Input{
		QueueName: queueName,
		Event:     ParseEventKind(ctx.String("event-name")),
	})
	if err != nil {
		log.Get().Error("reconcile failed",
			zap.String("queue_name", queueName),
			zap.String("event_name", ctx.String("event-name")),
			zap.String("cause", fmt.Sprintf("%+v", err)))
		return err
	}

	log.Get().Info("reconciled",
		zap.String("queue_name", queueName),
		zap.String("alarm_name", result.AlarmName),
		zap.String("action", string(result.Action)),
		zap.Strings("warnings", result.Warnings))

	if result.Action != ActionNone {
		if err := notifyResult(queueName, result); err != nil {
			log.Get().Error("notify",
				zap.String("queue_name", queueName),
				zap.String("cause", err.Error()))
		}
	}

	return nil
}

func pollAction(ctx *cli.Context) error {
	cfg := config.Get()
	sess, err := session.NewSession(aws.NewConfig().WithRegion(cfg.AWS.Region))
	if err != nil {
		return errors.WithStack(err)
	}

	p := &poller{
		sqs:        sqs.New(sess),
		reconciler: NewReconciler(sess, cfg),
		cfg:        cfg,
	}
	if err := p.drain(); err != nil {
		log.Get().Error("poll failed", zap.String("cause", fmt.Sprintf("%+v", err)))
		return err
	}

	return nil
}
