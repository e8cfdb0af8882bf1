package app

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"p2p-premium/internal/service"
	"p2p-premium/internal/storage"
)

func downsampleObservations(obs []storage.Observation, max int) []storage.Observation {
	if max <= 0 || len(obs) <= max {
		return obs
	}
	if max == 1 {
		return obs[len(obs)-1:]
	}

	result := make([]storage.Observation, 0, max)
	step := float64(len(obs)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(obs) {
			idx = len(obs) - 1
		}
		result = append(result, obs[idx])
	}
	return result
}

func writeObservationsCSV(path string, symbols []string, obs []storage.Observation) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{"timestamp", "cycle_id"}
	for _, s := range symbols {
		header = append(header, s+"_premium_pct")
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, o := range obs {
		record := []string{o.Timestamp.UTC().Format(time.RFC3339), o.CycleID.String()}
		for _, s := range symbols {
			p, ok := o.Premium(s)
			if !ok {
				record = append(record, "")
				continue
			}
			record = append(record, p.StringFixed(2))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeObservationsPNG(path, fiat string, symbols []string, obs []storage.Observation) error {
	if len(obs) < service.MinChartPoints {
		return errors.New("not enough observations to chart")
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(obs))
	for i, o := range obs {
		x[i] = o.Timestamp
	}

	series := make([]chart.Series, 0, len(symbols))
	for _, s := range symbols {
		y := make([]float64, len(obs))
		for i, o := range obs {
			p, _ := o.Premium(s)
			y[i] = p.InexactFloat64()
		}
		series = append(series, chart.TimeSeries{
			Name:    s,
			XValues: x,
			YValues: y,
		})
	}

	pctFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Title:  fmt.Sprintf("P2P premium vs global spot (%s)", fiat),
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeMinuteValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Premium (%)",
			ValueFormatter: pctFormatter,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
