// Package influxdb records device telemetry in InfluxDB v2.
//
// Every reconciled device snapshot becomes one device_state point tagged
// with the device ID, so temperature and window history can be charted
// outside the core.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	if err := client.WriteDeviceState("ventana1", fields, time.Now()); err != nil {
//	    log.Warn("telemetry point dropped", "error", err)
//	}
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval. Batch errors are delivered to the SetOnError callback.
package influxdb
