// Package websocket pushes service events to browser clients over /ws.
//
// Every frame is a JSON Message:
//
//	{"type":"dataset:uploaded","data":{...},"timestamp":"2024-01-31T00:30:00Z"}
//
// A new client first receives a "connection" message. The event types are
// defined by the services package; Hub implements services.EventPublisher.
// Messages from clients are read only to keep the connection alive.
package websocket
