package carbon

import "fmt"

// ValidateStockInput checks the declared ranges of a stock/offset input set
// and returns every violation found. The calculators do not call this
// themselves; callers validate first or accept best-effort clamped output.
func ValidateStockInput(in StockInput) *ValidationError {
	var violations []string

	if in.NDVI < 0 || in.NDVI > 1 {
		violations = append(violations, fmt.Sprintf("NDVI %.3f must be between 0 and 1", in.NDVI))
	}
	if in.ProjectArea <= 0 {
		violations = append(violations, fmt.Sprintf("project area %.2f must be greater than 0", in.ProjectArea))
	}
	if in.Soil.Moisture < 0 || in.Soil.Moisture > 1 {
		violations = append(violations, fmt.Sprintf("soil moisture %.3f must be between 0 and 1", in.Soil.Moisture))
	}
	if in.Satellite.CloudCover < 0 || in.Satellite.CloudCover > 100 {
		violations = append(violations, fmt.Sprintf("cloud cover %.1f must be between 0 and 100", in.Satellite.CloudCover))
	}

	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

// ValidateProjectParameters checks project metadata ranges.
func ValidateProjectParameters(p ProjectParameters) *ValidationError {
	var violations []string

	if p.AreaHectares <= 0 {
		violations = append(violations, fmt.Sprintf("area %.2f must be greater than 0", p.AreaHectares))
	}
	if p.DurationYears <= 0 {
		violations = append(violations, fmt.Sprintf("duration %.1f must be greater than 0", p.DurationYears))
	}
	switch p.ProjectType {
	case ProjectReforestation, ProjectAfforestation, ProjectConservation, ProjectAgroforestry:
	default:
		violations = append(violations, fmt.Sprintf("unknown project type %q", p.ProjectType))
	}
	switch p.BaselineScenario {
	case BaselineBusinessAsUsual, BaselineDeforestation, BaselineDegradation:
	default:
		violations = append(violations, fmt.Sprintf("unknown baseline scenario %q", p.BaselineScenario))
	}

	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}
