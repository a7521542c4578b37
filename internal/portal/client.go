// Package portal is the employee-facing client of the onboarding API: an
// HTTP client that keeps the session cookie, and the per-form submission
// flow built on it.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"onboarding/internal/domain/auth"
	"onboarding/internal/domain/onboarding"
)

const apiPrefix = "/api/v1"

// APIError is a failed envelope from the server. Validation and
// prerequisite failures unwrap to the matching onboarding error so callers
// can handle local and remote rejections the same way.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details map[string]any

	cause error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.cause
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

// Client talks to one onboarding server. The session cookie set at login is
// kept in a cookie jar; the token is also sent as a bearer header.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	token string
}

func NewClient(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Jar: jar, Timeout: 30 * time.Second},
	}, nil
}

func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) Login(ctx context.Context, email, password, mfaCode string) (auth.Session, error) {
	var session auth.Session
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email": email, "password": password, "mfaCode": mfaCode,
	}, nil, &session)
	if err != nil {
		return auth.Session{}, err
	}
	c.token = session.Token
	return session, nil
}

func (c *Client) GetApplication(ctx context.Context, employeeID, profile string) (onboarding.ApplicationView, error) {
	if employeeID == "" {
		employeeID = onboarding.SelfEmployeeID
	}
	path := "/onboarding/get-application/" + url.PathEscape(employeeID)
	if profile != "" {
		path += "?profile=" + url.QueryEscape(profile)
	}
	var view onboarding.ApplicationView
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &view); err != nil {
		return onboarding.ApplicationView{}, err
	}
	return view, nil
}

// SaveForm posts a draft or submission. A non-empty idempotency key lets the
// server replay the first response when a submission is retried.
func (c *Client) SaveForm(ctx context.Context, def onboarding.Definition, in onboarding.SaveInput, idempotencyKey string) (onboarding.SaveResult, error) {
	headers := http.Header{}
	if idempotencyKey != "" {
		headers.Set("Idempotency-Key", idempotencyKey)
	}
	var result onboarding.SaveResult
	if err := c.doJSON(ctx, http.MethodPost, "/onboarding/save-"+def.Slug, in, headers, &result); err != nil {
		return onboarding.SaveResult{}, err
	}
	return result, nil
}

func (c *Client) UploadDocument(ctx context.Context, def onboarding.Definition, in onboarding.UploadInput) (onboarding.SaveResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("applicationId", in.ApplicationID)
	_ = writer.WriteField("employeeId", in.EmployeeID)
	part, err := writer.CreateFormFile("file", in.Filename)
	if err != nil {
		return onboarding.SaveResult{}, err
	}
	if _, err := part.Write(in.Content); err != nil {
		return onboarding.SaveResult{}, err
	}
	if err := writer.Close(); err != nil {
		return onboarding.SaveResult{}, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/onboarding/employee-upload-"+def.Slug, &body)
	if err != nil {
		return onboarding.SaveResult{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	var result onboarding.SaveResult
	if err := c.send(req, &result); err != nil {
		return onboarding.SaveResult{}, err
	}
	return result, nil
}

func (c *Client) RemoveUpload(ctx context.Context, def onboarding.Definition, applicationID, employeeID string) (onboarding.SaveResult, error) {
	var result onboarding.SaveResult
	err := c.doJSON(ctx, http.MethodPost, "/onboarding/remove-"+def.Slug+"-upload", map[string]string{
		"applicationId": applicationID, "employeeId": employeeID,
	}, nil, &result)
	if err != nil {
		return onboarding.SaveResult{}, err
	}
	return result, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, headers http.Header, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+apiPrefix+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &APIError{Status: resp.StatusCode, Code: "invalid_response", Message: err.Error()}
	}
	if !env.Success || resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, env)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

func decodeError(status int, env envelope) error {
	apiErr := &APIError{Status: status, Code: "unknown_error", Message: http.StatusText(status)}
	if env.Error == nil {
		return apiErr
	}
	apiErr.Code = env.Error.Code
	apiErr.Message = env.Error.Message
	apiErr.Details = env.Error.Details

	switch apiErr.Code {
	case "validation_error":
		var issues []onboarding.FieldIssue
		if remarshal(env.Error.Details["fields"], &issues) == nil && len(issues) > 0 {
			apiErr.cause = &onboarding.ValidationError{Issues: issues}
		}
	case "prerequisites_missing":
		prereq := &onboarding.PrerequisiteError{}
		_ = remarshal(env.Error.Details["formKey"], &prereq.FormKey)
		_ = remarshal(env.Error.Details["missing"], &prereq.Missing)
		apiErr.cause = prereq
	case "wrong_job_description":
		apiErr.cause = onboarding.ErrWrongJobDescription
	}
	return apiErr
}

func remarshal(in, out any) error {
	if in == nil {
		return errors.New("missing value")
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
