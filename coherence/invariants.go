package coherence

// CheckDirectory verifies the MOESI exclusivity rules on every line.
func CheckDirectory(d *Directory) error {
	for index := range d.lines {
		if err := CheckLine(d, uint64(index)); err != nil {
			return err
		}
	}
	return nil
}

// CheckLine verifies, for every tag held at index, that M and E copies are
// alone and that there is at most one owner.
func CheckLine(d *Directory, index uint64) error {
	line := d.lines[index]

	for p := range line {
		s := &line[p]
		if s.state.IsValid() && !s.hasTag() {
			return d.violation(index, p, "valid state without a tag")
		}
	}

	for p := range line {
		s := &line[p]
		if !s.state.IsValid() {
			continue
		}

		var counts [NumStates]int
		valid := 0
		for q := range line {
			if line[q].state.IsValid() && line[q].holds(s.block.Tag) {
				counts[line[q].state]++
				valid++
			}
		}

		switch {
		case s.state == Modified && valid > 1:
			return d.violation(index, p, "modified line has other valid copies")
		case s.state == Exclusive && valid > 1:
			return d.violation(index, p, "exclusive line has other valid copies")
		case s.state == Owned && counts[Owned] > 1:
			return d.violation(index, p, "line has more than one owner")
		}
	}

	return nil
}

func (d *Directory) violation(index uint64, p int, reason string) error {
	v := d.Slot(index, p)
	return &InvariantViolationError{
		Op:        "check",
		Index:     index,
		Tag:       v.Tag,
		Processor: p,
		State:     v.State,
		Reason:    reason,
	}
}
