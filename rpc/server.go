/*
 * ArcDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"devt.de/krotik/common/logutil"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"devt.de/krotik/arcdb/graph"
	"devt.de/krotik/arcdb/graph/data"
	"devt.de/krotik/arcdb/graph/query"
	"devt.de/krotik/arcdb/graph/util"
)

/*
EndpointRPC is the URL of the websocket endpoint
*/
const EndpointRPC = "/rpc"

/*
ResponseQueueSize is the number of responses which can be queued for writing
per session
*/
var ResponseQueueSize = 16

var logger = logutil.GetLogger("arcdb.rpc")

/*
Handler serves websocket sessions on a datastore.
*/
type Handler struct {
	ds       graph.Datastore               // Datastore which is served
	upgrader websocket.Upgrader            // Upgrader for incoming connections
	sessions map[*WebsocketConnection]bool // Open sessions
	lock     *sync.Mutex                   // Lock for the open sessions
}

/*
NewHandler creates a new websocket handler for a datastore.
*/
func NewHandler(ds graph.Datastore) *Handler {
	return &Handler{
		ds: ds,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		sessions: make(map[*WebsocketConnection]bool),
		lock:     &sync.Mutex{},
	}
}

/*
ServeHTTP upgrades an incoming request to a websocket session and serves it
until the client closes the connection.
*/
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {

	// Upgrade writes an HTTP error to the client if it fails

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("Could not upgrade connection from ", r.RemoteAddr, ": ", err)
		return
	}

	wc := NewWebsocketConnection(conn)

	h.lock.Lock()
	h.sessions[wc] = true
	h.lock.Unlock()

	logger.Debug("Session started for ", r.RemoteAddr)

	if err := h.serve(wc); err != nil {
		logger.Warning("Session of ", r.RemoteAddr, " ended with error: ", err)
	} else {
		logger.Debug("Session ended for ", r.RemoteAddr)
	}

	h.lock.Lock()
	delete(h.sessions, wc)
	h.lock.Unlock()

	wc.Close("")
}

/*
Shutdown closes all open sessions.
*/
func (h *Handler) Shutdown() {
	h.lock.Lock()
	defer h.lock.Unlock()

	for wc := range h.sessions {
		wc.Close("Server shutdown")
	}
}

/*
serve runs a session on a connection. Requests are read and executed in
order; responses are written by a separate writer.
*/
func (h *Handler) serve(wc *WebsocketConnection) error {
	s := &session{ds: h.ds}
	s.trans, s.transErr = h.ds.Transaction()

	responses := make(chan Response, ResponseQueueSize)

	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		defer close(responses)

		for {
			var req Request

			fatal, err := wc.ReadData(&req)
			if fatal {
				if isClosed(err) || ctx.Err() != nil {
					return nil
				}
				return err
			}

			var res Response

			if err != nil {
				res = errorResponse(Response{ID: req.ID, Op: req.Op},
					validationError("Invalid request", err))
			} else {
				res = s.handle(req)
			}

			select {
			case responses <- res:
			case <-ctx.Done():
				return nil
			}
		}
	})

	g.Go(func() error {
		for res := range responses {
			if err := wc.WriteData(res); err != nil {

				// Closing the connection stops the reader

				wc.Conn.Close()
				return err
			}
		}
		return nil
	})

	return g.Wait()
}

/*
errorResponse adds an error to a response.
*/
func errorResponse(res Response, err error) Response {
	var ge *util.GraphError

	if errors.As(err, &ge) {
		res.Error = ge.Detail
		res.ErrorType = ge.Type.Error()
	} else {
		res.Error = err.Error()
	}

	return res
}

// Session
// =======

/*
session is the state of a single client connection.
*/
type session struct {
	ds       graph.Datastore   // Served datastore
	trans    graph.Transaction // Transaction of this session
	transErr error             // Error if no transaction could be created
}

/*
opFunc executes a single operation.
*/
type opFunc func(s *session, params json.RawMessage) (interface{}, error)

/*
handle executes a request.
*/
func (s *session) handle(req Request) Response {
	res := Response{ID: req.ID, Op: req.Op}

	fn, ok := ops[req.Op]
	if !ok {
		return errorResponse(res, util.NewValidationError(util.ErrInvalidData,
			fmt.Sprintf("Unknown operation: %v", req.Op)))
	}

	if s.transErr != nil && req.Op != OpPing {
		return errorResponse(res, s.transErr)
	}

	result, err := fn(s, req.Params)

	if err == nil && result != nil {
		res.Result, err = json.Marshal(result)
	}

	if err != nil {
		return errorResponse(res, err)
	}

	return res
}

/*
decodeParams decodes the parameters of a request.
*/
func decodeParams(params json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(params, v); err != nil {
		return validationError("Invalid parameters", err)
	}

	return nil
}

/*
validationError turns a decoding error into a validation error. Graph errors
are returned as they are.
*/
func validationError(msg string, err error) error {
	var ge *util.GraphError

	if errors.As(err, &ge) {
		return ge
	}

	return util.NewValidationError(util.ErrInvalidData, fmt.Sprintf("%v: %v", msg, err))
}

func decodeVertexQuery(params json.RawMessage) (query.VertexQuery, error) {
	var p queryParams

	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	return query.UnmarshalVertexQuery(p.Query)
}

func decodeEdgeQuery(params json.RawMessage) (query.EdgeQuery, error) {
	var p queryParams

	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	return query.UnmarshalEdgeQuery(p.Query)
}

func decodeVertexPropertyQuery(params json.RawMessage) (query.VertexPropertyQuery, json.RawMessage, error) {
	var p propertyParams

	if err := decodeParams(params, &p); err != nil {
		return query.VertexPropertyQuery{}, nil, err
	}

	q, err := query.UnmarshalVertexPropertyQuery(p.Query)

	return q, p.Value, err
}

func decodeEdgePropertyQuery(params json.RawMessage) (query.EdgePropertyQuery, json.RawMessage, error) {
	var p propertyParams

	if err := decodeParams(params, &p); err != nil {
		return query.EdgePropertyQuery{}, nil, err
	}

	q, err := query.UnmarshalEdgePropertyQuery(p.Query)

	return q, p.Value, err
}

/*
ops maps operation names to their implementation.
*/
var ops = map[string]opFunc{

	OpPing: func(s *session, params json.RawMessage) (interface{}, error) {
		return "pong", nil
	},

	OpSync: func(s *session, params json.RawMessage) (interface{}, error) {
		return nil, s.ds.Sync()
	},

	OpBulkInsert: func(s *session, params json.RawMessage) (interface{}, error) {
		var p bulkParams

		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}

		items := make([]data.BulkInsertItem, len(p.Items))

		for i, raw := range p.Items {
			item, err := data.UnmarshalBulkItem(raw)
			if err != nil {
				return nil, validationError(fmt.Sprintf("Item %v", i), err)
			}
			items[i] = item
		}

		return nil, s.ds.BulkInsert(items)
	},

	OpCreateVertex: func(s *session, params json.RawMessage) (interface{}, error) {
		var p vertexParams

		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}

		return s.trans.CreateVertex(p.Vertex)
	},

	OpCreateVertexFromType: func(s *session, params json.RawMessage) (interface{}, error) {
		var p typeParams

		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}

		return s.trans.CreateVertexFromType(p.T)
	},

	OpGetVertices: func(s *session, params json.RawMessage) (interface{}, error) {
		q, err := decodeVertexQuery(params)
		if err != nil {
			return nil, err
		}

		return s.trans.GetVertices(q)
	},

	OpDeleteVertices: func(s *session, params json.RawMessage) (interface{}, error) {
		q, err := decodeVertexQuery(params)
		if err != nil {
			return nil, err
		}

		return nil, s.trans.DeleteVertices(q)
	},

	OpGetVertexCount: func(s *session, params json.RawMessage) (interface{}, error) {
		return s.trans.GetVertexCount()
	},

	OpCreateEdge: func(s *session, params json.RawMessage) (interface{}, error) {
		var p edgeKeyParams

		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}

		return s.trans.CreateEdge(p.Key)
	},

	OpGetEdges: func(s *session, params json.RawMessage) (interface{}, error) {
		q, err := decodeEdgeQuery(params)
		if err != nil {
			return nil, err
		}

		return s.trans.GetEdges(q)
	},

	OpDeleteEdges: func(s *session, params json.RawMessage) (interface{}, error) {
		q, err := decodeEdgeQuery(params)
		if err != nil {
			return nil, err
		}

		return nil, s.trans.DeleteEdges(q)
	},

	OpGetEdgeCount: func(s *session, params json.RawMessage) (interface{}, error) {
		var p edgeCountParams

		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}

		return s.trans.GetEdgeCount(p.ID, p.T, p.Direction)
	},

	OpGetVertexProperties: func(s *session, params json.RawMessage) (interface{}, error) {
		q, _, err := decodeVertexPropertyQuery(params)
		if err != nil {
			return nil, err
		}

		return s.trans.GetVertexProperties(q)
	},

	OpGetAllVertexProperties: func(s *session, params json.RawMessage) (interface{}, error) {
		q, err := decodeVertexQuery(params)
		if err != nil {
			return nil, err
		}

		return s.trans.GetAllVertexProperties(q)
	},

	OpSetVertexProperties: func(s *session, params json.RawMessage) (interface{}, error) {
		q, value, err := decodeVertexPropertyQuery(params)
		if err != nil {
			return nil, err
		}

		return nil, s.trans.SetVertexProperties(q, value)
	},

	OpDeleteVertexProperties: func(s *session, params json.RawMessage) (interface{}, error) {
		q, _, err := decodeVertexPropertyQuery(params)
		if err != nil {
			return nil, err
		}

		return nil, s.trans.DeleteVertexProperties(q)
	},

	OpGetEdgeProperties: func(s *session, params json.RawMessage) (interface{}, error) {
		q, _, err := decodeEdgePropertyQuery(params)
		if err != nil {
			return nil, err
		}

		return s.trans.GetEdgeProperties(q)
	},

	OpGetAllEdgeProperties: func(s *session, params json.RawMessage) (interface{}, error) {
		q, err := decodeEdgeQuery(params)
		if err != nil {
			return nil, err
		}

		return s.trans.GetAllEdgeProperties(q)
	},

	OpSetEdgeProperties: func(s *session, params json.RawMessage) (interface{}, error) {
		q, value, err := decodeEdgePropertyQuery(params)
		if err != nil {
			return nil, err
		}

		return nil, s.trans.SetEdgeProperties(q, value)
	},

	OpDeleteEdgeProperties: func(s *session, params json.RawMessage) (interface{}, error) {
		q, _, err := decodeEdgePropertyQuery(params)
		if err != nil {
			return nil, err
		}

		return nil, s.trans.DeleteEdgeProperties(q)
	},
}
