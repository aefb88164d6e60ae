package main

import (
	"github.com/Patricklolilol/ffmpeg-service/app"
	"github.com/Patricklolilol/ffmpeg-service/pkg/observability"
)

func main() {
	observability.StartProfiling("ffmpeg-service")
	app.Run()
}
