package stream

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/canopy-network/spectroscope/lib"
	"github.com/gorilla/websocket"
)

// Source is a connected validator stream
type Source interface {
	// SendWatch() sets the validators to stream
	SendWatch(req WatchRequest) error
	// Recv() blocks until the next message; it fails once the source is closed
	Recv() (*ValidatorInfo, error)
	Close() error
}

// Dialer connects to a stream
type Dialer func(ctx context.Context, url string) (Source, lib.ErrorI)

var _ Source = &wsSource{}

// wsSource is a Source over a websocket carrying JSON text frames
type wsSource struct {
	conn *websocket.Conn
	wmu  sync.Mutex // gorilla allows one concurrent writer
}

// DialWebsocket() connects to a websocket stream
func DialWebsocket(ctx context.Context, url string) (Source, lib.ErrorI) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, ErrDial(url, err)
	}
	return &wsSource{conn: conn}, nil
}

func (s *wsSource) SendWatch(req WatchRequest) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.conn.WriteJSON(req)
}

func (s *wsSource) Recv() (*ValidatorInfo, error) {
	_, bz, err := s.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, ErrStreamClosed()
		}
		return nil, err
	}
	msg := new(ValidatorInfo)
	if err = json.Unmarshal(bz, msg); err != nil {
		return nil, lib.ErrJSONUnmarshal(err)
	}
	return msg, nil
}

func (s *wsSource) Close() error {
	s.wmu.Lock()
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.wmu.Unlock()
	return s.conn.Close()
}
