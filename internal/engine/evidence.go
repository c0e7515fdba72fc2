package engine

// Evidence is a named observation contributing to a confidence score.
type Evidence struct {
	Tag    string  `json:"tag"`
	Weight float64 `json:"weight"`
}

// Score sums evidence weights and clamps the result to [0, 1].
func Score(evidence []Evidence) float64 {
	var sum float64
	for _, e := range evidence {
		sum += e.Weight
	}
	if sum < 0 {
		return 0
	}
	if sum > 1 {
		return 1
	}
	return sum
}

// Detected reports whether a score meets the threshold.
func Detected(score, threshold float64) bool {
	return score >= threshold
}

// Tags returns the evidence tag names in observation order.
func Tags(evidence []Evidence) []string {
	tags := make([]string, len(evidence))
	for i, e := range evidence {
		tags[i] = e.Tag
	}
	return tags
}

// Collector accumulates evidence while enforcing that the same snapshot
// element contributes at most once per tag.
type Collector struct {
	evidence []Evidence
	seen     map[string]bool
}

// Observe records evidence for an element/tag pair. Repeated observations
// of the same pair are ignored.
func (c *Collector) Observe(element, tag string, weight float64) {
	if c.seen == nil {
		c.seen = make(map[string]bool)
	}
	key := element + "\x00" + tag
	if c.seen[key] {
		return
	}
	c.seen[key] = true
	c.evidence = append(c.evidence, Evidence{Tag: tag, Weight: weight})
}

// Evidence returns the collected evidence in observation order.
func (c *Collector) Evidence() []Evidence {
	return c.evidence
}
