// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/vechain/dpos/api/events"
	"github.com/vechain/dpos/api/utils"
	"github.com/vechain/dpos/log"
	"github.com/vechain/dpos/logdb"
	"github.com/vechain/dpos/node"
	"github.com/vechain/dpos/staker"
	"github.com/vechain/dpos/thor"
)

var logger = log.WithContext("pkg", "subscriptions")

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 7) / 10
	// buffered events per subscriber
	listenerBuffer = 64
)

type Subscriptions struct {
	upgrader  *websocket.Upgrader
	done      chan struct{}
	wg        sync.WaitGroup
	sub       event.Subscription
	mu        sync.RWMutex
	listeners map[chan *logdb.Event]struct{}
}

func New(node *node.Node, allowedOrigins []string) *Subscriptions {
	s := &Subscriptions{
		upgrader: &websocket.Upgrader{
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return slices.ContainsFunc(allowedOrigins, func(allowed string) bool {
					return allowed == "*" || allowed == strings.ToLower(origin)
				})
			},
		},
		done:      make(chan struct{}),
		listeners: make(map[chan *logdb.Event]struct{}),
	}

	feedCh := make(chan *logdb.Event, listenerBuffer)
	s.sub = node.SubscribeEvents(feedCh)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.dispatchLoop(feedCh)
	}()
	return s
}

func (s *Subscriptions) subscribe(ch chan *logdb.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listeners[ch] = struct{}{}
}

func (s *Subscriptions) unsubscribe(ch chan *logdb.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.listeners, ch)
}

func (s *Subscriptions) dispatchLoop(feedCh chan *logdb.Event) {
	for {
		select {
		case ev := <-feedCh:
			s.mu.RLock()
			for lsn := range s.listeners {
				select {
				case lsn <- ev:
				default: // a slow subscriber misses events rather than stalling the node
					metricDroppedEvents().Add(1)
				}
			}
			s.mu.RUnlock()
		case <-s.done:
			return
		}
	}
}

type eventMatcher struct {
	accounts []thor.Address
	names    []string
}

func (m *eventMatcher) match(ev *logdb.Event) bool {
	if len(m.names) > 0 && !slices.Contains(m.names, ev.Name) {
		return false
	}
	if len(m.accounts) == 0 {
		return true
	}
	return slices.ContainsFunc(m.accounts, func(a thor.Address) bool {
		return ev.Validator == a || ev.Account == a || slices.Contains(ev.Validators, a)
	})
}

func parseMatcher(req *http.Request) (*eventMatcher, error) {
	query := req.URL.Query()
	m := &eventMatcher{}
	for _, s := range query["account"] {
		addr, err := thor.ParseAddress(s)
		if err != nil {
			return nil, errors.WithMessage(err, "account")
		}
		m.accounts = append(m.accounts, *addr)
	}
	for _, name := range query["name"] {
		if !slices.Contains(staker.EventNames, staker.EventName(name)) {
			return nil, errors.Errorf("name: unknown event %q", name)
		}
		m.names = append(m.names, name)
	}
	return m, nil
}

func (s *Subscriptions) handleSubscribeStaker(w http.ResponseWriter, req *http.Request) error {
	matcher, err := parseMatcher(req)
	if err != nil {
		return utils.BadRequest(err)
	}

	conn, err := s.upgrader.Upgrade(w, req, nil)
	// since the conn is hijacked here, no error should be returned in lines below
	if err != nil {
		logger.Debug("upgrade to websocket", "err", err)
		return nil
	}
	defer conn.Close()

	ch := make(chan *logdb.Event, listenerBuffer)
	s.subscribe(ch)
	defer s.unsubscribe(ch)

	metricActiveSubscriptions().Add(1)
	defer metricActiveSubscriptions().Add(-1)

	if err := s.pipe(conn, ch, matcher); err != nil {
		logger.Debug("error in websocket", "err", err)
	}
	return nil
}

func (s *Subscriptions) pipe(conn *websocket.Conn, ch chan *logdb.Event, matcher *eventMatcher) error {
	closed := make(chan struct{})
	// start read loop to handle close event and pong
	go func() {
		defer close(closed)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				logger.Debug("websocket read err", "err", err)
				return
			}
		}
	}()

	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case ev := <-ch:
			if !matcher.match(ev) {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(events.ConvertEvent(ev)); err != nil {
				return err
			}
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		case <-s.done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			return conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "service closed"))
		case <-closed:
			return nil
		}
	}
}

// Close stops dispatching and closes every subscription.
func (s *Subscriptions) Close() {
	s.sub.Unsubscribe()
	close(s.done)
	s.wg.Wait()
}

func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/staker").
		Methods(http.MethodGet).
		Name("WS /subscriptions/staker").
		HandlerFunc(utils.WrapHandlerFunc(s.handleSubscribeStaker))
}
