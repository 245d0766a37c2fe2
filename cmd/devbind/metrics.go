package main

import (
	"github.com/nerrad567/gray-logic-devbind/internal/bridges/devfile"
	"github.com/nerrad567/gray-logic-devbind/internal/document"
)

// pointWriter is the part of *influxdb.Client the metrics adapter uses.
type pointWriter interface {
	WriteChannelTraffic(bindingID, kind, direction string, bytes int)
	WriteChannelError(bindingID, direction string)
	WriteElementEvent(elementID, event string)
}

// channelMetrics turns device exchanges and element events into InfluxDB
// points. The write API is batched and non-blocking.
type channelMetrics struct {
	influx pointWriter
}

// RecordIO implements devfile.Recorder. Byte counts include the line
// terminator.
func (m channelMetrics) RecordIO(ev devfile.IOEvent) {
	if ev.Err != nil {
		m.influx.WriteChannelError(ev.BindingID, string(ev.Direction))
		return
	}
	m.influx.WriteChannelTraffic(ev.BindingID, string(ev.Kind), string(ev.Direction), len(ev.Payload)+1)
}

func (m channelMetrics) elementEvent(ev document.Event) {
	m.influx.WriteElementEvent(ev.ElementID, ev.Name)
}
