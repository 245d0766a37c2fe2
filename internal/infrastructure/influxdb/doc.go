// Package influxdb writes DevBind channel metrics to InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Three measurements are
// written:
//
//	channel_traffic  binding_id, kind, direction  lines, bytes
//	channel_errors   binding_id, direction        count
//	element_events   element_id, event            count
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // metrics off; a nil *Client ignores writes
//	}
//	defer client.Close()
//
//	client.WriteChannelTraffic("panel-leds", "output-color", "tx", 6)
//
// Writes are non-blocking and batched per influxdb.batch_size and
// influxdb.flush_interval. Asynchronous write errors go to the callback set
// with SetOnError.
package influxdb
