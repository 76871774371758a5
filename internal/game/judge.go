package game

// ValidPlacement reports whether inserting a song from candidateYear at index
// keeps the timeline chronologically ordered. years must already be sorted
// non-decreasing; index may be 0..len(years) inclusive. An out-of-range index
// is a caller bug and returns ErrIndexOutOfRange rather than a verdict.
//
// Equal-year neighbors are accepted on either side, so a song from the same
// year as an existing entry has more than one valid slot.
func ValidPlacement(years []int, index, candidateYear int) (bool, error) {
	if index < 0 || index > len(years) {
		return false, ErrIndexOutOfRange
	}
	if index > 0 && years[index-1] > candidateYear {
		return false, nil
	}
	if index < len(years) && years[index] < candidateYear {
		return false, nil
	}
	return true, nil
}
