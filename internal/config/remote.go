package config

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// RemoteTimeout bounds a remote configuration query.
const RemoteTimeout = 2 * time.Second

// Messages exchanged with a Provider. Requests look like
//   { "type": "query" }
// and are answered with
//   { "type": "snapshot", "snapshot": {...} }  or  { "type": "error", "error": "..." }
type request struct {
	Type string `json:"type"`
}

type response struct {
	Type     string    `json:"type"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Provider serves configuration to hooked processes over a websocket.
type Provider struct {
	src      Source
	upgrader websocket.Upgrader
}

func NewProvider(src Source) *Provider {
	return &Provider{src: src}
}

func (p *Provider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("upgrade: %v", err)
		return
	}
	defer ws.Close()

	for {
		var req request
		if err := ws.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("Provider read: %v", err)
			}
			return
		}

		var resp response
		switch req.Type {
		case "query":
			snap, err := p.src.Read()
			if err != nil {
				resp = response{Type: "error", Error: err.Error()}
			} else {
				resp = response{Type: "snapshot", Snapshot: &snap}
			}
		default:
			log.Warn("Unexpected provider request: %v", req.Type)
			resp = response{Type: "error", Error: "unknown request type " + req.Type}
		}
		if err := ws.WriteJSON(resp); err != nil {
			log.Warn("Provider write: %v", err)
			return
		}
	}
}

// RemoteSource queries a Provider. Each Read is one short-lived connection.
type RemoteSource struct {
	url    string
	dialer *websocket.Dialer
}

// NewRemoteSource reads from the provider at url, e.g. ws://127.0.0.1:8719/config.
func NewRemoteSource(url string) *RemoteSource {
	return &RemoteSource{
		url:    url,
		dialer: &websocket.Dialer{HandshakeTimeout: RemoteTimeout},
	}
}

func (r *RemoteSource) Read() (Snapshot, error) {
	ws, _, err := r.dialer.Dial(r.url, nil)
	if err != nil {
		return Snapshot{}, errors.Wrapf(err, "dialing %s", r.url)
	}
	defer ws.Close()

	ws.SetWriteDeadline(time.Now().Add(RemoteTimeout))
	ws.SetReadDeadline(time.Now().Add(RemoteTimeout))

	if err := ws.WriteJSON(request{Type: "query"}); err != nil {
		return Snapshot{}, errors.Wrap(err, "sending query")
	}
	var resp response
	if err := ws.ReadJSON(&resp); err != nil {
		return Snapshot{}, errors.Wrap(err, "reading snapshot")
	}
	ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	switch {
	case resp.Type == "error":
		return Snapshot{}, errors.Errorf("provider: %s", resp.Error)
	case resp.Snapshot == nil:
		return Snapshot{}, errors.Errorf("provider sent %q without a snapshot", resp.Type)
	}
	return *resp.Snapshot, resp.Snapshot.Validate()
}
