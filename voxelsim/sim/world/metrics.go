package world

import (
	"math"
	"time"
)

// ChunkTaskMetrics is the timing record of one mesh build task.
type ChunkTaskMetrics struct {
	QuadsTime uint32 // µs
	MeshTime  uint32 // µs
	Failed    bool
}

// ChunkExtractMetrics records one dispatch batch: how many tasks it started
// and how long the voxel extraction took.
type ChunkExtractMetrics struct {
	Tasks       uint32
	ExtractTime uint32 // µs
}

// SingleDistributionMetrics summarizes one timing distribution. Failed
// samples count toward Samples but not toward the statistics.
type SingleDistributionMetrics struct {
	Samples int
	Failed  int
	MinTime float64 // µs
	MaxTime float64 // µs
	AvgTime float64 // µs
	StdDev  float64
}

func makeDistributionMetrics(total int, values []float64) SingleDistributionMetrics {
	m := SingleDistributionMetrics{
		Samples: total,
		Failed:  total - len(values),
	}
	if len(values) == 0 {
		return m
	}
	m.MinTime = values[0]
	m.MaxTime = values[0]
	sum := 0.0
	for _, v := range values {
		m.MinTime = math.Min(m.MinTime, v)
		m.MaxTime = math.Max(m.MaxTime, v)
		sum += v
	}
	m.AvgTime = sum / float64(len(values))
	dev := 0.0
	for _, v := range values {
		d := m.AvgTime - v
		dev += d * d
	}
	m.StdDev = math.Sqrt(dev / float64(len(values)))
	return m
}

func (m SingleDistributionMetrics) InfoLog(log Logger, name string) {
	log.Infof("metrics.%-7s :: samples: %5d, failed: %d, min: %2d µs, max: %4d µs, avg: %4d µs, std_dev: %.4f",
		name, m.Samples, m.Failed, int(m.MinTime), int(m.MaxTime), int(m.AvgTime), m.StdDev)
}

type ChunkDistributionMetrics struct {
	ExtractTime SingleDistributionMetrics
	QuadsTime   SingleDistributionMetrics
	MeshTime    SingleDistributionMetrics
}

func (m ChunkDistributionMetrics) InfoLog(log Logger) {
	m.ExtractTime.InfoLog(log, "extract")
	m.QuadsTime.InfoLog(log, "quads")
	m.MeshTime.InfoLog(log, "mesh")
}

// chunkMetrics accumulates task and extract records between resets.
type chunkMetrics struct {
	start   time.Time
	tasks   []ChunkTaskMetrics
	extract []ChunkExtractMetrics
}

func newChunkMetrics() chunkMetrics {
	return chunkMetrics{start: time.Now()}
}

func (m *chunkMetrics) empty() bool {
	return len(m.extract) == 0 && len(m.tasks) == 0
}

func (m *chunkMetrics) distributionMetrics() ChunkDistributionMetrics {
	extractTotal := 0
	extractSum := 0.0
	for _, e := range m.extract {
		extractTotal += int(e.Tasks)
		extractSum += float64(e.ExtractTime)
	}
	extractTime := SingleDistributionMetrics{Samples: extractTotal}
	if extractTotal > 0 {
		// Only the average is meaningful per-task; extraction is timed
		// per batch.
		extractTime.AvgTime = extractSum / float64(extractTotal)
	}

	quads := make([]float64, 0, len(m.tasks))
	meshes := make([]float64, 0, len(m.tasks))
	for _, t := range m.tasks {
		if t.Failed {
			continue
		}
		quads = append(quads, float64(t.QuadsTime))
		meshes = append(meshes, float64(t.MeshTime))
	}

	return ChunkDistributionMetrics{
		ExtractTime: extractTime,
		QuadsTime:   makeDistributionMetrics(len(m.tasks), quads),
		MeshTime:    makeDistributionMetrics(len(m.tasks), meshes),
	}
}
