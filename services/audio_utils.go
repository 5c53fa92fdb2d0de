package services

import (
	"errors"
	"io"
	"os"

	tcmp3 "github.com/tcolgate/mp3"
)

// MP3DurationFromFile decodes every frame of the file and returns the
// total duration in seconds.
func MP3DurationFromFile(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return mp3Duration(f)
}

func mp3Duration(r io.Reader) (float64, error) {
	var (
		dur     float64
		dec     = tcmp3.NewDecoder(r)
		frame   tcmp3.Frame
		skipped int
		frames  int
	)
	for {
		if err := dec.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, err
		}
		dur += frame.Duration().Seconds()
		frames++
	}
	if frames == 0 {
		return 0, errors.New("no mp3 frames found")
	}
	return dur, nil
}
