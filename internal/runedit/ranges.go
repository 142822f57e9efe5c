package runedit

// Resolve 返回与 [start, end] 相交的所有区间下标，结果连续且有序。
// ranges 必须按顺序首尾相接，这样才能二分查找。
func Resolve(ranges []Range, start, end int) []int {
	low, high := 0, len(ranges)-1

	for low <= high {
		mid := (low + high) / 2
		switch {
		case ranges[mid].End < start:
			low = mid + 1
		case ranges[mid].Start > end:
			high = mid - 1
		default:
			for mid > 0 && ranges[mid-1].Overlaps(start, end) {
				mid--
			}

			var result []int
			for ; mid < len(ranges) && ranges[mid].Overlaps(start, end); mid++ {
				result = append(result, mid)
			}
			return result
		}
	}

	return nil
}
