package output

import (
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"poi-harvest/internal/poi_harvest/helper"
	"poi-harvest/internal/poi_harvest/model"
)

// Layout names the artifacts of one phase inside Dir.
type Layout struct {
	Dir             string
	FinalFile       string
	ReportFile      string
	PartitionPrefix string
	// Timestamped appends the write time to FinalFile.
	Timestamped bool
}

// Paths are the files one WriteAll produced.
type Paths struct {
	Final      string
	Report     string
	Partitions map[string]string
}

type Writer struct {
	Layout Layout
	Log    *zap.Logger
}

func NewWriter(layout Layout, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{Layout: layout, Log: log}
}

// WriteAll writes the combined file, one file per partition and the usage
// report. Any failure is fatal to the run.
func (w *Writer) WriteAll(entities []model.Entity, report model.UsageReport, at time.Time) (Paths, error) {
	l := w.Layout
	if entities == nil {
		entities = []model.Entity{}
	}

	name := l.FinalFile
	if l.Timestamped {
		name = helper.TimestampedName(name, at)
	}
	paths := Paths{
		Final:      filepath.Join(l.Dir, name),
		Report:     filepath.Join(l.Dir, l.ReportFile),
		Partitions: map[string]string{},
	}

	if err := helper.WriteJSON(paths.Final, entities); err != nil {
		return paths, model.Fatal("write final artifact", err)
	}

	order, groups := GroupByPartition(entities)
	for _, part := range order {
		path := filepath.Join(l.Dir, l.PartitionPrefix+helper.Slug(part)+".json")
		if err := helper.WriteJSON(path, groups[part]); err != nil {
			return paths, model.Fatal("write partition artifact", err)
		}
		paths.Partitions[part] = path
	}

	if l.ReportFile != "" {
		if err := helper.WriteJSON(paths.Report, report); err != nil {
			return paths, model.Fatal("write usage report", err)
		}
	}

	w.Log.Info("Artifacts written",
		zap.String("final", paths.Final),
		zap.Int("entities", len(entities)),
		zap.Int("partitions", len(order)),
		zap.String("report", paths.Report),
	)
	return paths, nil
}

// GroupByPartition keeps first-seen partition order and entity order inside
// each partition.
func GroupByPartition(entities []model.Entity) ([]string, map[string][]model.Entity) {
	var order []string
	groups := make(map[string][]model.Entity)
	for _, e := range entities {
		if _, ok := groups[e.Partition]; !ok {
			order = append(order, e.Partition)
		}
		groups[e.Partition] = append(groups[e.Partition], e)
	}
	return order, groups
}
