package pipeline

import "time"

// Batch groups values from inCh. A batch starts with the first value
// received and takes whatever else is already waiting, up to limit. With
// a positive window it keeps collecting for that long after the first
// value. The output closes when inCh closes or done is closed.
func Batch[T any](done <-chan struct{}, inCh <-chan T, window time.Duration, limit int) <-chan []T {
	if limit <= 0 {
		limit = 1
	}

	outCh := make(chan []T)

	go func() {
		defer close(outCh)

		for {
			var first T
			select {
			case <-done:
				return
			case v, ok := <-inCh:
				if !ok {
					return
				}
				first = v
			}

			batch, open := collect(done, inCh, first, window, limit)
			if len(batch) > 0 {
				select {
				case outCh <- batch:
				case <-done:
					return
				}
			}

			if !open {
				return
			}
		}
	}()

	return outCh
}

func collect[T any](done <-chan struct{}, inCh <-chan T, first T, window time.Duration, limit int) ([]T, bool) {
	batch := []T{first}

	var deadline <-chan time.Time
	if window > 0 {
		timer := time.NewTimer(window)
		defer timer.Stop()
		deadline = timer.C
	}

	for len(batch) < limit {
		if deadline == nil {
			select {
			case v, ok := <-inCh:
				if !ok {
					return batch, false
				}
				batch = append(batch, v)
			default:
				return batch, true
			}
			continue
		}

		select {
		case v, ok := <-inCh:
			if !ok {
				return batch, false
			}
			batch = append(batch, v)
		case <-deadline:
			return batch, true
		case <-done:
			return batch, true
		}
	}

	return batch, true
}

// Coalesce drops values equal to the one right before them. Only runs
// collapse, so A B A keeps all three and ordering is preserved.
func Coalesce[T comparable](values []T) []T {
	if len(values) < 2 {
		return values
	}

	out := values[:1]
	for _, v := range values[1:] {
		if v == out[len(out)-1] {
			continue
		}
		out = append(out, v)
	}

	return out
}
