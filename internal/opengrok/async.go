package opengrok

import (
	"context"
	"encoding/json"
	"net/http"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/LeeChunJun/OpenGrokMCP/internal/errors"
	"github.com/LeeChunJun/OpenGrokMCP/internal/normalize"
	"github.com/LeeChunJun/OpenGrokMCP/internal/transport"
)

// Status states.
const (
	StatePending = "pending"
	StateDone    = "done"
)

// AsyncOperation is the result of a request the server accepted for
// background processing (202). Done is set when the server finished
// synchronously instead.
type AsyncOperation struct {
	StatusID  string `json:"statusId,omitempty"`
	StatusURL string `json:"statusUrl,omitempty"`
	Done      bool   `json:"done"`
}

// OperationStatus is one observation of /status/{id}.
type OperationStatus struct {
	ID         string          `json:"id"`
	State      string          `json:"state"`
	StatusCode int             `json:"statusCode"`
	Result     json.RawMessage `json:"result,omitempty"`
}

// asyncFrom reads the status location of an accepted request.
func asyncFrom(op string, resp *transport.Response) (*AsyncOperation, error) {
	if resp.StatusCode != http.StatusAccepted {
		return &AsyncOperation{Done: true}, nil
	}
	loc := resp.Header.Get("Location")
	if loc == "" {
		return nil, errors.NewMalformedResponse(op, "202 response without a Location header", nil)
	}
	id := path.Base(loc)
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.NewMalformedResponse(op, "status location does not end in a status id", err).
			WithDetails(map[string]string{"location": loc})
	}
	return &AsyncOperation{StatusID: id, StatusURL: loc}, nil
}

// statusFrom maps a classified /status response: 202 pending, any other
// success terminal.
func statusFrom(id string, resp *transport.Response) (*OperationStatus, error) {
	st := &OperationStatus{ID: id, StatusCode: resp.StatusCode, State: StateDone}
	if resp.StatusCode == http.StatusAccepted {
		st.State = StatePending
		return st, nil
	}
	if len(resp.Body) > 0 {
		raw, err := normalize.Raw("getStatus", resp.Body)
		if err == nil {
			st.Result = raw
		} else {
			b, _ := json.Marshal(normalize.Text(resp.Body))
			st.Result = b
		}
	}
	return st, nil
}

// validateStatusID rejects ids that are not UUIDs.
func validateStatusID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.NewInvalidArgument("statusId", "must be a UUID")
	}
	return nil
}

// StatusFunc observes one /status/{id} state.
type StatusFunc func(ctx context.Context, id string) (*OperationStatus, error)

// WaitForStatus polls /status/{id} every poll interval until the
// operation leaves the pending state, ctx is done or timeout elapses.
// A timeout of zero waits for ctx only.
func (c *Client) WaitForStatus(ctx context.Context, id string, timeout time.Duration) (*OperationStatus, error) {
	return c.WaitForStatusWith(ctx, id, timeout, c.GetStatus)
}

// WaitForStatusWith is WaitForStatus with each observation made by get.
// Callers that guard the session per request wrap GetStatus here.
func (c *Client) WaitForStatusWith(ctx context.Context, id string, timeout time.Duration, get StatusFunc) (*OperationStatus, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		st, err := get(ctx, id)
		if err != nil {
			return nil, err
		}
		if st.State != StatePending {
			return st, nil
		}
		c.logger.Debug("Operation pending", "statusId", id)

		select {
		case <-ctx.Done():
			return st, errors.NewUpstreamUnavailable("waitForStatus", ctx.Err()).
				WithDetails(map[string]string{"statusId": id, "state": st.State})
		case <-ticker.C:
		}
	}
}
