package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementChannelTraffic = "channel_traffic"
	MeasurementChannelErrors  = "channel_errors"
	MeasurementElementEvents  = "element_events"
)

// WriteChannelTraffic records one line exchanged with a binding's device.
// bytes includes the line terminator.
//
//	client.WriteChannelTraffic("panel-leds", "output-color", "tx", 7)
func (c *Client) WriteChannelTraffic(bindingID, kind, direction string, bytes int) {
	c.write(MeasurementChannelTraffic,
		map[string]string{"binding_id": bindingID, "kind": kind, "direction": direction},
		map[string]interface{}{"lines": 1, "bytes": bytes},
	)
}

// WriteChannelError records a failed read or write on a binding's device.
func (c *Client) WriteChannelError(bindingID, direction string) {
	c.write(MeasurementChannelErrors,
		map[string]string{"binding_id": bindingID, "direction": direction},
		map[string]interface{}{"count": 1},
	)
}

// WriteElementEvent records an event ("pressed", "released") dispatched on
// an element.
func (c *Client) WriteElementEvent(elementID, event string) {
	c.write(MeasurementElementEvents,
		map[string]string{"element_id": elementID, "event": event},
		map[string]interface{}{"count": 1},
	)
}

// write queues one point timestamped now. Points are dropped once the client
// is closed.
func (c *Client) write(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
