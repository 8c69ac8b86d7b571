package domain

// ProbeInfo holds the media attributes discovered by probing a
// downloaded audio file.
type ProbeInfo struct {
	DurationSeconds float64
	FormatName      string
	CodecName       string
	SampleRate      int
	Channels        int
	BitRate         int
	SizeMB          float64
}

// AudioChunk is one bounded piece of the source audio, cut so that
// each piece stays within the transcription service's upload limit.
type AudioChunk struct {
	Index        int
	LocalPath    string
	StartSeconds float64
	Seconds      float64
}
