package carbon

// PerformanceBenchmark compares NDVI change on the project area against a
// control area: benchmark = projectChange / controlChange. A flat control
// area would divide by zero, so that case returns the neutral value 1.0.
func PerformanceBenchmark(projectNDVI, controlNDVI, projectNDVIPrevious, controlNDVIPrevious float64) float64 {
	projectChange := projectNDVI - projectNDVIPrevious
	controlChange := controlNDVI - controlNDVIPrevious

	if controlChange == 0 {
		return 1.0
	}
	return projectChange / controlChange
}
