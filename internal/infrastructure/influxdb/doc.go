// Package influxdb records item reload metrics in InfluxDB v2.
//
// Each reload attempt becomes one point in the mht_reload measurement,
// tagged with the source file and outcome, carrying the duration and the
// item and datapoint counts as fields.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteReload(influxdb.ReloadMetric{Source: path, OK: true, Items: 42})
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval. Asynchronous write errors go to the SetOnError callback.
package influxdb
