package domain

import "strconv"

type ProbeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	NbStreams  int    `json:"nb_streams"`
}

type ProbeStream struct {
	Index     int    `json:"index"`
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Duration  string `json:"duration"`
	Channels  int    `json:"channels"`
}

type ProbeResult struct {
	Format  ProbeFormat   `json:"format"`
	Streams []ProbeStream `json:"streams"`
}

func (p *ProbeResult) VideoStream() *ProbeStream {
	for i := range p.Streams {
		if p.Streams[i].CodecType == "video" {
			return &p.Streams[i]
		}
	}
	return nil
}

// HasAudio reports whether any audio stream is present. Videos without
// one are still valid inputs; the transcode simply omits audio mapping.
func (p *ProbeResult) HasAudio() bool {
	for i := range p.Streams {
		if p.Streams[i].CodecType == "audio" {
			return true
		}
	}
	return false
}

// DurationSeconds returns the container duration, falling back to the
// video stream's own duration when the container omits it.
func (p *ProbeResult) DurationSeconds() float64 {
	if d := parseDuration(p.Format.Duration); d > 0 {
		return d
	}
	if vs := p.VideoStream(); vs != nil {
		return parseDuration(vs.Duration)
	}
	return 0
}

func parseDuration(s string) float64 {
	if s == "" || s == "N/A" {
		return 0
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return d
}
