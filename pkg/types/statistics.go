package types

import "sort"

// Statistics maps service type to category to count. Every catalog service
// type is present, possibly with an empty category map.
type Statistics struct {
	Project string                         `json:"project"`
	Counts  map[ServiceType]map[string]int `json:"counts"`

	// order records first-encountered category order per service type so
	// ranking ties are stable.
	order map[ServiceType][]string
}

func NewStatistics(project string) *Statistics {
	s := &Statistics{
		Project: project,
		Counts:  make(map[ServiceType]map[string]int, len(ServiceTypes)),
		order:   make(map[ServiceType][]string, len(ServiceTypes)),
	}
	for _, st := range ServiceTypes {
		s.Counts[st] = make(map[string]int)
	}
	return s
}

// Add accumulates n occurrences of category under serviceType.
func (s *Statistics) Add(serviceType ServiceType, category string, n int) {
	if n <= 0 {
		return
	}
	cats, ok := s.Counts[serviceType]
	if !ok {
		cats = make(map[string]int)
		s.Counts[serviceType] = cats
	}
	if _, seen := cats[category]; !seen {
		s.order[serviceType] = append(s.order[serviceType], category)
	}
	cats[category] += n
}

func (s *Statistics) Total(serviceType ServiceType) int {
	total := 0
	for _, n := range s.Counts[serviceType] {
		total += n
	}
	return total
}

func (s *Statistics) GrandTotal() int {
	total := 0
	for st := range s.Counts {
		total += s.Total(st)
	}
	return total
}

// Ranked returns the categories of serviceType ordered by count descending,
// ties kept in first-encountered order.
func (s *Statistics) Ranked(serviceType ServiceType) []CategoryCount {
	cats := s.Counts[serviceType]
	out := make([]CategoryCount, 0, len(cats))
	for _, c := range s.order[serviceType] {
		out = append(out, CategoryCount{ServiceType: serviceType, Category: c, Count: cats[c]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// RankedServiceTypes returns service types that have at least one defect,
// ordered by total descending with catalog order on ties.
func (s *Statistics) RankedServiceTypes() []ServiceType {
	out := make([]ServiceType, 0, len(s.Counts))
	for _, st := range s.serviceTypes() {
		if s.Total(st) > 0 {
			out = append(out, st)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return s.Total(out[i]) > s.Total(out[j])
	})
	return out
}

// serviceTypes yields catalog service types first, then any unknown codes
// that made it into the counts, sorted.
func (s *Statistics) serviceTypes() []ServiceType {
	out := append([]ServiceType(nil), ServiceTypes...)
	known := make(map[ServiceType]bool, len(ServiceTypes))
	for _, st := range ServiceTypes {
		known[st] = true
	}
	extra := make([]ServiceType, 0)
	for st := range s.Counts {
		if !known[st] {
			extra = append(extra, st)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}
