package vo

// StageName labels one ordered step of the pipeline. The label is written to
// the job record for polling clients; it is never used as a control value.
type StageName string

const (
	StageDownloading  StageName = "downloading"
	StageProbing      StageName = "probing"
	StageConverting   StageName = "converting"
	StageClipping     StageName = "clipping"
	StageThumbnailing StageName = "thumbnailing"
	StageTranscribing StageName = "transcribing"
	StageCaptioning   StageName = "captioning"
	StagePublishing   StageName = "publishing"
	StageCompleted    StageName = "completed"
)

// String returns the stage label.
func (s StageName) String() string {
	return string(s)
}

// FailedLabel is the stage label written when this stage fails terminally.
func (s StageName) FailedLabel() string {
	return string(s) + "_failed"
}

// stageProgress maps each stage to the progress percentage reported on entry.
// Values are strictly increasing in pipeline order so observed progress is
// monotonic within a run.
var stageProgress = map[StageName]int{
	StageDownloading:  5,
	StageProbing:      10,
	StageConverting:   40,
	StageClipping:     70,
	StageThumbnailing: 80,
	StageTranscribing: 85,
	StageCaptioning:   90,
	StagePublishing:   95,
	StageCompleted:    100,
}

// Progress returns the target progress percentage for the stage.
func (s StageName) Progress() int {
	if p, ok := stageProgress[s]; ok {
		return p
	}
	return 0
}
