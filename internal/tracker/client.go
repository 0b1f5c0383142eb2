package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tphakala/binged/internal/datastore"
	"github.com/tphakala/binged/internal/errors"
	"github.com/tphakala/binged/internal/httpclient"
)

// API is what the controller needs from the server.
type API interface {
	List(ctx context.Context) ([]datastore.Movie, error)
	Save(ctx context.Context, in *datastore.MovieInput) error
	Delete(ctx context.Context, id int64) error
}

// APIError is a non-2xx reply from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// HTTPAPI talks to the binged server over HTTP.
type HTTPAPI struct {
	base   *url.URL
	client *httpclient.Client
}

// NewHTTPAPI returns a client for the server at base, e.g. http://localhost:3001.
func NewHTTPAPI(base string, client *httpclient.Client) (*HTTPAPI, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Newf("invalid API base URL %q", base).
			Component("tracker").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if client == nil {
		client = httpclient.New(nil)
	}
	return &HTTPAPI{base: u, client: client}, nil
}

func (a *HTTPAPI) endpoint(parts ...string) string {
	return a.base.JoinPath(parts...).String()
}

// List fetches every record.
func (a *HTTPAPI) List(ctx context.Context) ([]datastore.Movie, error) {
	start := time.Now()
	target := a.endpoint("movies")
	resp, err := a.client.Get(ctx, target)
	if err != nil {
		return nil, a.networkError(err, "list", target, start)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return nil, err
	}

	var movies []datastore.Movie
	if err := json.NewDecoder(resp.Body).Decode(&movies); err != nil {
		return nil, errors.New(fmt.Errorf("invalid movie list: %w", err)).
			Component("tracker").
			Category(errors.CategoryHTTP).
			Context("operation", "list").
			Build()
	}
	if movies == nil {
		movies = []datastore.Movie{}
	}
	return movies, nil
}

// Save sends the full record; the server replaces any row with the same id.
func (a *HTTPAPI) Save(ctx context.Context, in *datastore.MovieInput) error {
	start := time.Now()
	target := a.endpoint("movies")
	resp, err := a.client.Post(ctx, target, "application/json", in)
	if err != nil {
		return a.networkError(err, "save", target, start)
	}
	defer resp.Body.Close()
	return checkResponse(resp)
}

// Delete removes the record with id.
func (a *HTTPAPI) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	target := a.endpoint("movies", strconv.FormatInt(id, 10))
	resp, err := a.client.Delete(ctx, target)
	if err != nil {
		return a.networkError(err, "delete", target, start)
	}
	defer resp.Body.Close()
	return checkResponse(resp)
}

// checkResponse turns a non-2xx reply into an APIError carrying the
// server's error text.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, _ := httpclient.ReadBody(resp, 0)

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		apiErr.Message = payload.Error
		if payload.Message != "" {
			apiErr.Message += ": " + payload.Message
		}
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}

	category := errors.CategoryHTTP
	if resp.StatusCode == http.StatusNotFound {
		category = errors.CategoryNotFound
	}
	return errors.New(apiErr).
		Component("tracker").
		Category(category).
		Context("status_code", resp.StatusCode).
		Build()
}

// networkError records the endpoint class and how long the request ran
// before failing; the URL itself stays out of telemetry.
func (a *HTTPAPI) networkError(err error, operation, target string, start time.Time) error {
	return errors.New(err).
		Component("tracker").
		Category(errors.CategoryNetwork).
		NetworkContext(target, a.client.Timeout()).
		Timing(operation, time.Since(start)).
		Build()
}
