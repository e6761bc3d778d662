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
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"devt.de/krotik/arcdb/graph"
	"devt.de/krotik/arcdb/graph/data"
	"devt.de/krotik/arcdb/graph/query"
	"devt.de/krotik/arcdb/graph/util"
)

/*
Client is a connection to a remote datastore. A Client is a datastore and
the transaction of its session at the same time. Calls are thread-safe and
are sent one at a time.
*/
type Client struct {
	wc     *WebsocketConnection // Connection to the server
	nextID uint64               // Id of the next request
	closed bool                 // Flag if the client was closed
	lock   *sync.Mutex          // Lock for requests
}

/*
Dial connects to a server. The url should point to the rpc endpoint
(e.g. ws://localhost:9090/rpc).
*/
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, util.NewBackendError(util.ErrOpening, err)
	}

	return &Client{wc: NewWebsocketConnection(conn), lock: &sync.Mutex{}}, nil
}

/*
call sends a request and waits for its response. The result of the response
is decoded into the given result object.
*/
func (c *Client) call(op string, params interface{}, result interface{}) error {
	var raw json.RawMessage
	var err error

	if params != nil {
		if raw, err = json.Marshal(params); err != nil {
			return validationError("Invalid parameters", err)
		}
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return &util.GraphError{Type: util.ErrClosing, Detail: "Connection is closed"}
	}

	c.nextID++
	req := Request{ID: c.nextID, Op: op, Params: raw}

	if err := c.wc.WriteData(req); err != nil {
		return util.NewBackendError(util.ErrWriting, err)
	}

	var res Response

	if _, err := c.wc.ReadData(&res); err != nil {
		return util.NewBackendError(util.ErrReading, err)
	} else if res.ID != req.ID {
		return &util.GraphError{Type: util.ErrReading,
			Detail: fmt.Sprintf("Unexpected response id %v for request %v", res.ID, req.ID)}
	}

	if res.Error != "" || res.ErrorType != "" {
		return remoteError(res)
	}

	if result != nil {
		if err := json.Unmarshal(res.Result, result); err != nil {
			return util.NewBackendError(util.ErrEncoding, err)
		}
	}

	return nil
}

/*
remoteError restores the error of a response. Errors of known types are
returned as graph errors.
*/
func remoteError(res Response) error {
	if t := util.ErrorTypeByName(res.ErrorType); t != nil {
		return &util.GraphError{Type: t, Detail: res.Error}
	}
	return errors.New(res.Error)
}

/*
Ping checks that the server is responsive.
*/
func (c *Client) Ping() error {
	var pong string

	err := c.call(OpPing, nil, &pong)

	if err == nil && pong != "pong" {
		err = &util.GraphError{Type: util.ErrReading, Detail: fmt.Sprintf("Unexpected ping response: %v", pong)}
	}

	return err
}

// Datastore
// =========

/*
Transaction returns the transaction of this session.
*/
func (c *Client) Transaction() (graph.Transaction, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return nil, &util.GraphError{Type: util.ErrClosing, Detail: "Connection is closed"}
	}

	return c, nil
}

/*
BulkInsert loads a list of items. Items are validated before they are sent.
If an item is invalid then all items before it are loaded.
*/
func (c *Client) BulkInsert(items []data.BulkInsertItem) error {
	var itemErr error

	p := bulkParams{Items: make([]json.RawMessage, 0, len(items))}

	for _, item := range items {
		var raw []byte

		item, err := graph.CheckBulkItem(item)
		if err == nil {
			raw, err = data.MarshalBulkItem(item)
		}

		if err != nil {
			itemErr = err
			break
		}

		p.Items = append(p.Items, raw)
	}

	if len(p.Items) > 0 || itemErr == nil {
		if err := c.call(OpBulkInsert, p, nil); err != nil {
			return err
		}
	}

	return itemErr
}

/*
Sync writes all pending changes of the remote datastore.
*/
func (c *Client) Sync() error {
	return c.call(OpSync, nil, nil)
}

/*
Close closes the connection. The remote datastore stays open.
*/
func (c *Client) Close() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true

	return c.wc.Close("")
}

// Transaction
// ===========

/*
CreateVertex creates a new vertex.
*/
func (c *Client) CreateVertex(v data.Vertex) (bool, error) {
	var created bool
	err := c.call(OpCreateVertex, vertexParams{v}, &created)
	return created, err
}

/*
CreateVertexFromType creates a new vertex with a generated id.
*/
func (c *Client) CreateVertexFromType(t data.Type) (uuid.UUID, error) {
	var id uuid.UUID
	err := c.call(OpCreateVertexFromType, typeParams{t}, &id)
	return id, err
}

/*
GetVertices returns the vertices of a query.
*/
func (c *Client) GetVertices(q query.VertexQuery) ([]data.Vertex, error) {
	var res []data.Vertex

	p, err := vertexQueryParams(q)
	if err == nil {
		res = []data.Vertex{}
		if err = c.call(OpGetVertices, p, &res); err != nil {
			res = nil
		}
	}

	return res, err
}

/*
DeleteVertices deletes the vertices of a query.
*/
func (c *Client) DeleteVertices(q query.VertexQuery) error {
	p, err := vertexQueryParams(q)
	if err == nil {
		err = c.call(OpDeleteVertices, p, nil)
	}
	return err
}

/*
GetVertexCount returns the number of vertices.
*/
func (c *Client) GetVertexCount() (uint64, error) {
	var count uint64
	err := c.call(OpGetVertexCount, nil, &count)
	return count, err
}

/*
CreateEdge creates a new edge or refreshes an existing edge.
*/
func (c *Client) CreateEdge(key data.EdgeKey) (bool, error) {
	var created bool
	err := c.call(OpCreateEdge, edgeKeyParams{key}, &created)
	return created, err
}

/*
GetEdges returns the edges of a query.
*/
func (c *Client) GetEdges(q query.EdgeQuery) ([]data.Edge, error) {
	var res []data.Edge

	p, err := edgeQueryParams(q)
	if err == nil {
		res = []data.Edge{}
		if err = c.call(OpGetEdges, p, &res); err != nil {
			res = nil
		}
	}

	return res, err
}

/*
DeleteEdges deletes the edges of a query.
*/
func (c *Client) DeleteEdges(q query.EdgeQuery) error {
	p, err := edgeQueryParams(q)
	if err == nil {
		err = c.call(OpDeleteEdges, p, nil)
	}
	return err
}

/*
GetEdgeCount returns the number of edges of a vertex.
*/
func (c *Client) GetEdgeCount(id uuid.UUID, t *data.Type, dir data.Direction) (uint64, error) {
	var count uint64
	err := c.call(OpGetEdgeCount, edgeCountParams{id, t, dir}, &count)
	return count, err
}

/*
GetVertexProperties returns a named property of the vertices of a query.
*/
func (c *Client) GetVertexProperties(q query.VertexPropertyQuery) ([]data.VertexProperty, error) {
	var res []data.VertexProperty

	p, err := vertexPropertyParams(q, nil)
	if err == nil {
		res = []data.VertexProperty{}
		if err = c.call(OpGetVertexProperties, p, &res); err != nil {
			res = nil
		}
	}

	return res, err
}

/*
GetAllVertexProperties returns all properties of the vertices of a query.
*/
func (c *Client) GetAllVertexProperties(q query.VertexQuery) ([]data.VertexProperties, error) {
	var res []data.VertexProperties

	p, err := vertexQueryParams(q)
	if err == nil {
		res = []data.VertexProperties{}
		if err = c.call(OpGetAllVertexProperties, p, &res); err != nil {
			res = nil
		}
	}

	return res, err
}

/*
SetVertexProperties sets a named property on the vertices of a query.
*/
func (c *Client) SetVertexProperties(q query.VertexPropertyQuery, value json.RawMessage) error {
	value, err := data.NormalizeJSON(value)
	if err != nil {
		return err
	}

	p, err := vertexPropertyParams(q, value)
	if err == nil {
		err = c.call(OpSetVertexProperties, p, nil)
	}

	return err
}

/*
DeleteVertexProperties deletes a named property from the vertices of a query.
*/
func (c *Client) DeleteVertexProperties(q query.VertexPropertyQuery) error {
	p, err := vertexPropertyParams(q, nil)
	if err == nil {
		err = c.call(OpDeleteVertexProperties, p, nil)
	}
	return err
}

/*
GetEdgeProperties returns a named property of the edges of a query.
*/
func (c *Client) GetEdgeProperties(q query.EdgePropertyQuery) ([]data.EdgeProperty, error) {
	var res []data.EdgeProperty

	p, err := edgePropertyParams(q, nil)
	if err == nil {
		res = []data.EdgeProperty{}
		if err = c.call(OpGetEdgeProperties, p, &res); err != nil {
			res = nil
		}
	}

	return res, err
}

/*
GetAllEdgeProperties returns all properties of the edges of a query.
*/
func (c *Client) GetAllEdgeProperties(q query.EdgeQuery) ([]data.EdgeProperties, error) {
	var res []data.EdgeProperties

	p, err := edgeQueryParams(q)
	if err == nil {
		res = []data.EdgeProperties{}
		if err = c.call(OpGetAllEdgeProperties, p, &res); err != nil {
			res = nil
		}
	}

	return res, err
}

/*
SetEdgeProperties sets a named property on the edges of a query.
*/
func (c *Client) SetEdgeProperties(q query.EdgePropertyQuery, value json.RawMessage) error {
	value, err := data.NormalizeJSON(value)
	if err != nil {
		return err
	}

	p, err := edgePropertyParams(q, value)
	if err == nil {
		err = c.call(OpSetEdgeProperties, p, nil)
	}

	return err
}

/*
DeleteEdgeProperties deletes a named property from the edges of a query.
*/
func (c *Client) DeleteEdgeProperties(q query.EdgePropertyQuery) error {
	p, err := edgePropertyParams(q, nil)
	if err == nil {
		err = c.call(OpDeleteEdgeProperties, p, nil)
	}
	return err
}

// Parameter encoding
// ==================

func vertexQueryParams(q query.VertexQuery) (queryParams, error) {
	raw, err := query.MarshalVertexQuery(q)
	return queryParams{raw}, err
}

func edgeQueryParams(q query.EdgeQuery) (queryParams, error) {
	raw, err := query.MarshalEdgeQuery(q)
	return queryParams{raw}, err
}

func vertexPropertyParams(q query.VertexPropertyQuery, value json.RawMessage) (propertyParams, error) {
	raw, err := query.MarshalVertexPropertyQuery(q)
	return propertyParams{raw, value}, err
}

func edgePropertyParams(q query.EdgePropertyQuery, value json.RawMessage) (propertyParams, error) {
	raw, err := query.MarshalEdgePropertyQuery(q)
	return propertyParams{raw, value}, err
}
