package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// Topology selects how a job's transformations relate to each other.
type Topology string

const (
	// TopologyIndependent applies every transformation to the original file.
	TopologyIndependent Topology = "independent"
	// TopologyChained feeds each transformation the previous step's output.
	TopologyChained Topology = "chained"
)

// ParseTopology accepts "independent" or "chained" in any case. Empty input
// means independent.
func ParseTopology(s string) (Topology, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(TopologyIndependent):
		return TopologyIndependent, nil
	case string(TopologyChained):
		return TopologyChained, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTopology, s)
}

// Job is one input file processed through the full transformation list.
type Job struct {
	Input           string
	Transformations []string
	Topology        Topology
}

// Units is the number of progress units the job represents.
func (j Job) Units() int {
	if j.Topology == TopologyChained {
		return 1
	}
	return len(j.Transformations)
}

// BuildJobs expands files and transformation ids into one Job per file.
// Repeated paths collapse into one job; distinct paths sharing a base name are
// rejected since their outputs would collide. Under the independent topology
// repeated ids are dropped because they would write the same output name.
func BuildJobs(files, ids []string, topology Topology) ([]Job, error) {
	if topology == "" {
		topology = TopologyIndependent
	}
	if topology != TopologyIndependent && topology != TopologyChained {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTopology, topology)
	}
	files = lo.Uniq(lo.Compact(files))
	if len(files) == 0 {
		return nil, ErrNoInputFiles
	}
	ids = lo.Map(ids, func(id string, _ int) string { return strings.TrimSpace(id) })
	ids = lo.Compact(ids)
	if len(ids) == 0 {
		return nil, ErrNoTransformations
	}
	if topology == TopologyIndependent {
		ids = lo.Uniq(ids)
	}

	byBase := lo.GroupBy(files, func(f string) string { return filepath.Base(f) })
	for base, group := range byBase {
		if len(group) > 1 {
			return nil, fmt.Errorf("%w: %s (%s)", ErrDuplicateInput, base, strings.Join(group, ", "))
		}
	}

	jobs := make([]Job, 0, len(files))
	for _, f := range files {
		jobs = append(jobs, Job{
			Input:           f,
			Transformations: append([]string(nil), ids...),
			Topology:        topology,
		})
	}
	return jobs, nil
}

// TotalUnits sums the progress units of jobs.
func TotalUnits(jobs []Job) int {
	return lo.SumBy(jobs, func(j Job) int { return j.Units() })
}
