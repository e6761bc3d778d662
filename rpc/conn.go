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
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

/*
CloseTimeout is the time which is given to the other side to acknowledge
a close message
*/
var CloseTimeout = 10 * time.Second

/*
WebsocketConnection models a single websocket connection.

Websocket connections support one concurrent reader and one concurrent writer.
See: https://godoc.org/github.com/gorilla/websocket#hdr-Concurrency
*/
type WebsocketConnection struct {
	Conn   *websocket.Conn
	RMutex *sync.Mutex
	WMutex *sync.Mutex
}

/*
NewWebsocketConnection creates a new WebsocketConnection object.
*/
func NewWebsocketConnection(c *websocket.Conn) *WebsocketConnection {
	return &WebsocketConnection{
		Conn:   c,
		RMutex: &sync.Mutex{},
		WMutex: &sync.Mutex{}}
}

/*
ReadData reads a JSON message from the websocket connection into a given
object. The returned flag is true if the connection cannot be used anymore.
*/
func (wc *WebsocketConnection) ReadData(v interface{}) (bool, error) {
	var fatal = true

	wc.RMutex.Lock()
	_, msg, err := wc.Conn.ReadMessage()
	wc.RMutex.Unlock()

	if err == nil {
		fatal = false
		err = json.Unmarshal(msg, v)
	}

	return fatal, err
}

/*
WriteData writes an object as JSON message to the websocket.
*/
func (wc *WebsocketConnection) WriteData(v interface{}) error {
	jsonData, err := json.Marshal(v)
	if err != nil {
		return err
	}

	wc.WMutex.Lock()
	defer wc.WMutex.Unlock()

	return wc.Conn.WriteMessage(websocket.TextMessage, jsonData)
}

/*
Close closes the websocket connection.
*/
func (wc *WebsocketConnection) Close(msg string) error {
	wc.Conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(
			websocket.CloseNormalClosure, msg), time.Now().Add(CloseTimeout))

	return wc.Conn.Close()
}

/*
isClosed checks if an error of a read operation means that the other side
closed the connection.
*/
func isClosed(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
