package indicators

// SMA calculates the Simple Moving Average over the last period values.
// With fewer values than the period it averages what is available.
func SMA(values []float64, period int) float64 {
	if len(values) < period {
		return Mean(values)
	}
	return Mean(values[len(values)-period:])
}

// Mean returns the arithmetic mean of values, 0 for an empty slice
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
