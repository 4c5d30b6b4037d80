package report

import (
	_ "embed"
	"fmt"
	"html/template"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/aarondl/opt/null"

	"github.com/raceiq/raceiq-core-go/pkg/model"
	"github.com/raceiq/raceiq-core-go/version"
)

//go:embed index.html.tmpl
var indexHTML string

//nolint:gochecknoglobals // parsed once
var indexTemplate = template.Must(
	template.New("index").Funcs(template.FuncMap{
		"num":   fmtNullFloat,
		"sec":   fmtSeconds,
		"lap":   fmtNullLap,
		"delta": fmtDelta,
		"inc":   func(i int) int { return i + 1 },
	}).Parse(indexHTML))

type indexData struct {
	Race      string
	Name      string
	Version   string
	Generated string
	Snapshot  model.RaceSnapshot
	Board     []model.LeaderboardRow
	Stats     []model.DriverStat
	Compounds []model.CompoundSpec
	Charts    []chartRef
}

func fmtNullFloat(v null.Val[float64]) string {
	if v.IsNull() {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v.GetOrZero())
}

func fmtSeconds(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", v)
}

func fmtNullLap(v null.Val[int]) string {
	if v.IsNull() {
		return "n/a"
	}
	return strconv.Itoa(v.GetOrZero())
}

func fmtDelta(v float64) string {
	return fmt.Sprintf("%+.1f", v)
}

func writeIndex(path string, d *raceData, charts []chartRef) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return indexTemplate.Execute(f, &indexData{
		Race:      d.race.Key,
		Name:      d.race.Name,
		Version:   version.Version,
		Generated: time.Now().Format(time.RFC1123),
		Snapshot:  d.snapshot,
		Board:     d.board,
		Stats:     d.stats,
		Compounds: d.compounds,
		Charts:    charts,
	})
}
