package arcgis

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"sdpublish/internal/publish"
	"sdpublish/internal/services"
)

// JobMessage is one entry of a geoprocessing job's message log.
type JobMessage struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// JobStatus is the raw status document of a geoprocessing job.
type JobStatus struct {
	JobID     string       `json:"jobId"`
	JobStatus string       `json:"jobStatus"`
	Messages  []JobMessage `json:"messages"`
}

// State maps the raw status to a pipeline job state.
func (s JobStatus) State() publish.JobState {
	return publish.ParseJobState(s.JobStatus)
}

// Submit starts the Publish Service Definition tool for an uploaded item
// and returns the job id.
func (c *Client) Submit(ctx context.Context, itemID string) (string, error) {
	form := url.Values{"in_sdp_id": {itemID}}
	var out JobStatus
	if err := c.postForm(ctx, publishToolPath+"/submitJob", form, &out); err != nil {
		return "", services.Wrap(services.ErrSubmit, "submit", "submitJob", itemID, err)
	}
	jobID := strings.TrimSpace(out.JobID)
	if jobID == "" {
		return "", services.Wrap(services.ErrSubmit, "submit", "submitJob", itemID, errors.New("response did not include a job id"))
	}
	return jobID, nil
}

// JobStatus fetches the status document for jobID.
func (c *Client) JobStatus(ctx context.Context, jobID string) (JobStatus, error) {
	var out JobStatus
	path := publishToolPath + "/jobs/" + url.PathEscape(jobID)
	if err := c.postForm(ctx, path, nil, &out); err != nil {
		return JobStatus{}, services.Wrap(services.ErrPoll, "poll", "job status", jobID, err)
	}
	return out, nil
}

// Query returns the pipeline state of jobID. Unrecognized statuses map to
// publish.JobStateUnknown.
func (c *Client) Query(ctx context.Context, jobID string) (publish.JobState, error) {
	status, err := c.JobStatus(ctx, jobID)
	if err != nil {
		return "", err
	}
	return status.State(), nil
}

var (
	_ publish.Uploader  = (*Client)(nil)
	_ publish.Submitter = (*Client)(nil)
	_ publish.Poller    = (*Client)(nil)
)
