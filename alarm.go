package main

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
)

const (
	metricNamespace = "AWS/SQS"
	metricName      = "ApproximateNumberOfMessagesVisible"

	alarmPeriod            = 300
	alarmEvaluationPeriods = 1

	managedByTag = "sqs-alarm-reconciler"
)

// AlarmName derives the alarm name for a queue. The name is the only key
// the reconciler uses, so it must stay a pure function of the queue name.
func AlarmName(prefix, queueName string) string {
	return fmt.Sprintf("%s-%s", prefix, queueName)
}

func newPutMetricAlarmInput(name, queueName string, threshold float64, actions []string) *cloudwatch.PutMetricAlarmInput {
	in := &cloudwatch.PutMetricAlarmInput{
		AlarmName:        aws.String(name),
		AlarmDescription: aws.String(fmt.Sprintf("Messages visible in %s", queueName)),
		Namespace:        aws.String(metricNamespace),
		MetricName:       aws.String(metricName),
		Dimensions: []*cloudwatch.Dimension{
			{
				Name:  aws.String("QueueName"),
				Value: aws.String(queueName),
			},
		},
		Statistic:          aws.String(cloudwatch.StatisticAverage),
		Period:             aws.Int64(alarmPeriod),
		EvaluationPeriods:  aws.Int64(alarmEvaluationPeriods),
		Threshold:          aws.Float64(threshold),
		ComparisonOperator: aws.String(cloudwatch.ComparisonOperatorGreaterThanThreshold),
		TreatMissingData:   aws.String("notBreaching"),
	}
	for _, a := range actions {
		in.AlarmActions = append(in.AlarmActions, aws.String(a))
		in.OKActions = append(in.OKActions, aws.String(a))
	}

	return in
}

func alarmTags(queueName string) []*cloudwatch.Tag {
	return []*cloudwatch.Tag{
		{
			Key:   aws.String("QueueName"),
			Value: aws.String(queueName),
		},
		{
			Key:   aws.String("ManagedBy"),
			Value: aws.String(managedByTag),
		},
	}
}

func alarmARN(region, accountID, name string) string {
	return fmt.Sprintf("arn:aws:cloudwatch:%s:%s:alarm:%s", region, accountID, name)
}
