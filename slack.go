package main

import (
	"fmt"

	"github.com/nlopes/slack"
	"github.com/pkg/errors"
	"github.com/yuichiro-h/sqs-alarm-reconciler/config"
)

// notifyResult posts an operator notification for a state-changing
// reconcile. A no-op when no Slack token is configured.
func notifyResult(queueName string, result *Result) error {
	cfg := config.Get().Slack
	if cfg.APIToken == "" {
		return nil
	}

	attachment := slack.Attachment{
		Color: cfg.AttachmentColor,
		Fields: []slack.AttachmentField{
			{
				Title: "Queue",
				Value: queueName,
				Short: true,
			},
			{
				Title: "Alarm",
				Value: result.AlarmName,
				Short: true,
			},
			{
				Title: "Region",
				Value: config.Get().AWS.Region,
				Short: true,
			},
		},
	}
	for _, w := range result.Warnings {
		attachment.Fields = append(attachment.Fields, slack.AttachmentField{
			Title: "Warning",
			Value: w,
		})
	}

	params := slack.PostMessageParameters{
		Markdown:    true,
		Username:    cfg.Username,
		IconURL:     cfg.IconURL,
		Attachments: []slack.Attachment{attachment},
	}

	var text string
	switch result.Action {
	case ActionCreated:
		text = fmt.Sprintf("Created alarm for queue *%s*", queueName)
	case ActionDeleted:
		text = fmt.Sprintf("Deleted alarm for queue *%s*", queueName)
	default:
		return nil
	}

	_, _, err := slack.New(cfg.APIToken).PostMessage(cfg.Channel, text, params)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}
