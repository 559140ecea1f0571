package pipeline

// Stage names one step of a run.
type Stage string

const (
	StageValidate Stage = "validate"
	StageTheme    Stage = "theme"
	StageGeocode  Stage = "geocode"
	StageRoads    Stage = "roads"
	StageWater    Stage = "water"
	StageParks    Stage = "parks"
	StageClassify Stage = "classify"
	StageCanvas   Stage = "canvas"
	StageCompose  Stage = "compose"
	StageEncode   Stage = "encode"
	StagePersist  Stage = "persist"
	StageDone     Stage = "done"
)

// Stages lists every stage in execution order.
var Stages = []Stage{
	StageValidate, StageTheme, StageGeocode, StageRoads, StageWater, StageParks,
	StageClassify, StageCanvas, StageCompose, StageEncode, StagePersist, StageDone,
}

var stagePercent = map[Stage]int{
	StageValidate: 5,
	StageTheme:    15,
	StageGeocode:  25,
	StageRoads:    35,
	StageWater:    45,
	StageParks:    55,
	StageClassify: 60,
	StageCanvas:   65,
	StageCompose:  85,
	StageEncode:   95,
	StagePersist:  97,
	StageDone:     100,
}

// Percent is the progress reported once a stage has started.
func (s Stage) Percent() int { return stagePercent[s] }

// Label is a short human-readable description.
func (s Stage) Label() string {
	switch s {
	case StageValidate:
		return "Validating input"
	case StageTheme:
		return "Loading theme"
	case StageGeocode:
		return "Looking up coordinates"
	case StageRoads:
		return "Downloading street network"
	case StageWater:
		return "Downloading water features"
	case StageParks:
		return "Downloading parks"
	case StageClassify:
		return "Classifying roads"
	case StageCanvas:
		return "Sizing canvas"
	case StageCompose:
		return "Rendering map"
	case StageEncode:
		return "Encoding image"
	case StagePersist:
		return "Saving poster"
	case StageDone:
		return "Done"
	}
	return string(s)
}
