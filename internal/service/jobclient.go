package service

import (
	"time"

	"botforge/internal/jobs"

	"github.com/hibiken/asynq"
)

// JobClient schedules background provisioning work
type JobClient interface {
	ScheduleProvision(agentID string) error
	ScheduleProvisionTimeout(agentID string, timeout time.Duration) error
}

// AsynqJobClient is the production JobClient backed by asynq
type AsynqJobClient struct {
	client *asynq.Client
}

func NewAsynqJobClient(client *asynq.Client) *AsynqJobClient {
	return &AsynqJobClient{client: client}
}

func (c *AsynqJobClient) ScheduleProvision(agentID string) error {
	return jobs.ScheduleProvision(c.client, agentID)
}

func (c *AsynqJobClient) ScheduleProvisionTimeout(agentID string, timeout time.Duration) error {
	return jobs.ScheduleProvisionTimeout(c.client, agentID, timeout)
}
