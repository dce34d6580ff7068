package authsdk

import (
	"context"
	"net/http"
)

// ContactUs submits the public contact form.
func (c *SDKClient) ContactUs(ctx context.Context, req SubmissionRequest) (*SubmissionResponse, error) {
	return c.submit(ctx, "/v1/contact-us", "", req)
}

// HireUs submits the public hire-us form.
func (c *SDKClient) HireUs(ctx context.Context, req SubmissionRequest) (*SubmissionResponse, error) {
	return c.submit(ctx, "/v1/hire-us", "", req)
}

func (c *SDKClient) submit(ctx context.Context, path, bearer string, req SubmissionRequest) (*SubmissionResponse, error) {
	var out SubmissionResponse
	if err := c.doJSON(ctx, http.MethodPost, path, bearer, req, &out, http.StatusAccepted); err != nil {
		return nil, err
	}
	return &out, nil
}
