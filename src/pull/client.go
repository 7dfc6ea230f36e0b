package pull

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/openincident/beacon/src/feed"
	"github.com/sirupsen/logrus"
)

// TransportError wraps a failed page or document fetch. It is fatal to the
// current pull run.
type TransportError struct {
	URL string
	Err error
}

// Error ...
func (e *TransportError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

// Unwrap ...
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport checks whether err is a TransportError.
func IsTransport(err error) bool {
	_, ok := err.(*TransportError)
	return ok
}

// Client fetches feed documents from peers. The timeout bounds each
// individual fetch; traversal logic does not retry.
type Client struct {
	http   *http.Client
	logger *logrus.Entry
}

// NewClient ...
func NewClient(timeout time.Duration, logger *logrus.Entry) *Client {
	return &Client{
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Actor fetches a feed entry document.
func (c *Client) Actor(url string) (*feed.Actor, error) {
	actor := new(feed.Actor)
	if err := c.getJSON(url, actor); err != nil {
		return nil, err
	}
	return actor, nil
}

// Page fetches one outbox page. A non-200 response or an undecodable body
// is a TransportError like any network failure, because pagination order
// cannot be verified without an intact page.
func (c *Client) Page(url string) (*feed.OrderedCollectionPage, error) {
	page := new(feed.OrderedCollectionPage)
	if err := c.getJSON(url, page); err != nil {
		return nil, err
	}
	return page, nil
}

func (c *Client) getJSON(url string, v interface{}) error {
	c.logger.WithField("url", url).Debug("GET")

	resp, err := c.http.Get(url)
	if err != nil {
		return &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &TransportError{URL: url, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &TransportError{URL: url, Err: err}
	}

	return nil
}
