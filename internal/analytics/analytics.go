// Package analytics ships import activity to influx so spending dashboards
// stay current. Everything here is best effort, an analytics failure never
// fails an import.
package analytics

import (
	"fmt"
	"strconv"
	"time"

	influx "github.com/influxdata/influxdb/client/v2"
	"k8s.io/klog"

	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/config"
)

type Recorder struct {
	client   influx.Client
	database string
}

func NewRecorder() (*Recorder, error) {
	secrets := config.CurrentInfluxSecrets()

	client, err := influx.NewHTTPClient(influx.HTTPConfig{
		Addr:     secrets.InfluxEndpoint,
		Username: secrets.InfluxUsername,
		Password: secrets.InfluxPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("Error creating InfluxDB Client: %s", err.Error())
	}

	return &Recorder{
		client:   client,
		database: config.CurrentAnalyticsConfig().Database,
	}, nil
}

// RecordImport writes one point per finished import batch.
func (r *Recorder) RecordImport(userID string, year, month, imported, skipped, failed int) {
	bp, err := influx.NewBatchPoints(influx.BatchPointsConfig{
		Database:  r.database,
		Precision: "s",
	})
	if err != nil {
		klog.Warningf("Error creating InfluxDB point batch: %s", err.Error())
		return
	}

	tags := map[string]string{
		"user":  userID,
		"year":  strconv.Itoa(year),
		"month": strconv.Itoa(month),
	}

	fields := map[string]interface{}{
		"imported": imported,
		"skipped":  skipped,
		"failed":   failed,
	}

	pt, err := influx.NewPoint("import_batches", tags, fields, time.Now())
	if err != nil {
		klog.Warningf("Error adding new point: %s", err.Error())
		return
	}

	bp.AddPoint(pt)

	if err := r.client.Write(bp); err != nil {
		klog.Warningf("Error writing to influx: %s", err.Error())
	}
}
