package actions

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"video-matrix/internal/domain"
)

var encodePresets = []string{"faster", "fast", "medium", "slow"}

// recipes returns the built-in transformations in presentation order.
func recipes() []recipe {
	return []recipe{
		// basic
		{
			id: "md5", tag: "md5", name: "Scrub metadata", group: domain.GroupBasic,
			description: "Strip container metadata and stamp a random comment, stream copy.",
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				return []string{
					"-i", e.src,
					"-map_metadata", "-1",
					"-metadata", "comment=" + uuid.NewString(),
					"-c", "copy",
					e.dst,
				}, nil
			},
		},
		{
			id: "crop", tag: "crop", name: "Micro crop", group: domain.GroupBasic,
			description: "Crop a random 2-5% border around the centre.",
			params:      []string{"crop_min", "crop_max"},
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				ratio := uniform(e.params.Float("crop_min", 0.95), e.params.Float("crop_max", 0.98))
				return filterArgs(e.src, centerCrop(ratio), e.dst), nil
			},
		},
		{
			id: "strong_crop", tag: "scrop", name: "Strong crop", group: domain.GroupBasic,
			description: "Crop to a fixed ratio of the frame around the centre.",
			params:      []string{"strong_crop_ratio"},
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				ratio := e.params.Float("strong_crop_ratio", 0.85)
				if ratio <= 0 || ratio > 1 {
					return nil, fmt.Errorf("strong_crop_ratio out of range: %v", ratio)
				}
				return filterArgs(e.src, centerCrop(ratio), e.dst), nil
			},
		},
		{
			id: "cut_head_tail", tag: "cut", name: "Trim head and tail", group: domain.GroupBasic,
			description: "Drop the first and last seconds of the clip, stream copy.",
			params:      []string{"cut_seconds"},
			build: func(ctx context.Context, e buildEnv) ([]string, error) {
				cut := e.params.Float("cut_seconds", 1)
				duration, err := e.tool.ProbeDuration(ctx, e.src)
				if err != nil {
					return nil, err
				}
				keep := duration - 2*cut
				if keep < 1 {
					return nil, fmt.Errorf("clip too short to trim: %.2fs", duration)
				}
				return []string{
					"-ss", formatFloat(cut),
					"-i", e.src,
					"-t", formatFloat(keep),
					"-c", "copy",
					e.dst,
				}, nil
			},
		},
		{
			id: "rotate", tag: "rot", name: "Micro rotate", group: domain.GroupBasic,
			description: "Rotate by a small random angle and upscale slightly to hide corners.",
			params:      []string{"rotate_angle"},
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				limit := math.Abs(e.params.Float("rotate_angle", 1.5))
				angle := uniform(-limit, limit)
				filter := fmt.Sprintf("rotate=%s*PI/180,scale=trunc(iw*1.02/2)*2:-2", formatFloat(angle))
				return filterArgs(e.src, filter, e.dst), nil
			},
		},
		{
			id: "speed", tag: "spd", name: "Speed shift", group: domain.GroupBasic,
			description: "Change playback speed by a small random factor, audio kept in sync.",
			params:      []string{"speed_range"},
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				r := math.Abs(e.params.Float("speed_range", 0.05))
				factor := 1 + uniform(-r, r)
				return []string{
					"-i", e.src,
					"-filter:v", "setpts=PTS/" + formatFloat(factor),
					"-filter:a", "atempo=" + formatFloat(factor),
					e.dst,
				}, nil
			},
		},
		{
			id: "mirror", tag: "flip", name: "Mirror", group: domain.GroupBasic,
			description: "Flip the picture horizontally, vertically or both.",
			params:      []string{"mirror_direction"},
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				var filter string
				switch dir := e.params.String("mirror_direction", "horizontal"); dir {
				case "horizontal":
					filter = "hflip"
				case "vertical":
					filter = "vflip"
				case "both":
					filter = "hflip,vflip"
				default:
					return nil, fmt.Errorf("unknown mirror_direction %q", dir)
				}
				return filterArgs(e.src, filter, e.dst), nil
			},
		},
		{
			id: "fps_60", tag: "fps", name: "Frame rate", group: domain.GroupBasic,
			description: "Resample to the target frame rate.",
			params:      []string{"target_fps"},
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				fps := e.params.Int("target_fps", 60)
				if fps <= 0 {
					return nil, fmt.Errorf("target_fps must be positive: %d", fps)
				}
				return []string{"-i", e.src, "-r", strconv.Itoa(fps), "-c:a", "copy", e.dst}, nil
			},
		},
		{
			id: "bitrate_hq", tag: "hq", name: "High bitrate", group: domain.GroupBasic,
			description: "Re-encode at a constant high bitrate.",
			params:      []string{"target_bitrate"},
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				rate := e.params.String("target_bitrate", "15M")
				bufsize, err := doubleRate(rate)
				if err != nil {
					return nil, err
				}
				return []string{
					"-i", e.src,
					"-b:v", rate,
					"-minrate", rate,
					"-maxrate", rate,
					"-bufsize", bufsize,
					"-c:a", "copy",
					e.dst,
				}, nil
			},
		},
		{
			id: "encode", tag: "encode", name: "Re-encode", group: domain.GroupBasic,
			description: "Re-encode with libx264 at a random quality and preset.",
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				crf := int(uniform(18, 29))
				return []string{
					"-i", e.src,
					"-c:v", "libx264",
					"-crf", strconv.Itoa(crf),
					"-preset", pick(encodePresets),
					"-c:a", "copy",
					e.dst,
				}, nil
			},
		},

		{
			id: "touch", tag: "touch", name: "Fresh copy", group: domain.GroupBasic,
			description: "Remux every stream into a new file with fresh timestamps.",
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				return []string{"-i", e.src, "-map", "0", "-c", "copy", e.dst}, nil
			},
		},

		// visual
		{
			id: "sharpen", tag: "sharp", name: "Sharpen", group: domain.GroupVisual,
			description: "Apply an unsharp mask.",
			params:      []string{"sharpen_strength"},
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				s := e.params.Float("sharpen_strength", 1.0)
				return filterArgs(e.src, fmt.Sprintf("unsharp=5:5:%s:5:5:0.0", formatFloat(s)), e.dst), nil
			},
		},
		{
			id: "denoise", tag: "denoise", name: "Denoise", group: domain.GroupVisual,
			description: "Spatial and temporal denoise with hqdn3d.",
			params:      []string{"denoise_strength"},
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				s := e.params.Float("denoise_strength", 1.5)
				filter := fmt.Sprintf("hqdn3d=%[1]s:%[1]s:%[2]s:%[2]s", formatFloat(s), formatFloat(s*4))
				return filterArgs(e.src, filter, e.dst), nil
			},
		},
		{
			id: "blur", tag: "blur", name: "Soft blur", group: domain.GroupVisual,
			description: "Gaussian blur.",
			params:      []string{"blur_strength"},
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				s := e.params.Float("blur_strength", 1.5)
				return filterArgs(e.src, "gblur=sigma="+formatFloat(s), e.dst), nil
			},
		},
		{
			id: "color", tag: "color", name: "Colour shift", group: domain.GroupVisual,
			description: "Nudge gamma, contrast and saturation by small random amounts.",
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				filter := fmt.Sprintf("eq=gamma=%s:contrast=%s:saturation=%s",
					formatFloat(uniform(0.95, 1.05)),
					formatFloat(uniform(0.97, 1.03)),
					formatFloat(uniform(0.95, 1.05)),
				)
				return filterArgs(e.src, filter, e.dst), nil
			},
		},
		{
			id: "bw", tag: "bw", name: "Black and white", group: domain.GroupVisual,
			description: "Remove all colour.",
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				return filterArgs(e.src, "hue=s=0", e.dst), nil
			},
		},
		{
			id: "zoom", tag: "zoom", name: "Micro zoom", group: domain.GroupVisual,
			description: "Zoom in by a small random factor keeping the frame size.",
			params:      []string{"zoom_range"},
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				z := formatFloat(1 + uniform(0, math.Abs(e.params.Float("zoom_range", 0.05))))
				filter := fmt.Sprintf("scale=trunc(iw*%[1]s/2)*2:trunc(ih*%[1]s/2)*2,crop=trunc(iw/%[1]s/2)*2:trunc(ih/%[1]s/2)*2", z)
				return filterArgs(e.src, filter, e.dst), nil
			},
		},

		{
			id: "portrait", tag: "portrait", name: "Portrait enhance", group: domain.GroupVisual,
			description: "Strong unsharp mask with a slight contrast and brightness lift.",
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				return filterArgs(e.src, "unsharp=7:7:1.5:7:7:0.0,eq=contrast=1.1:brightness=0.02", e.dst), nil
			},
		},
		{
			id: "clean", tag: "clean", name: "Clean picture", group: domain.GroupVisual,
			description: "Fixed-strength hqdn3d denoise.",
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				return filterArgs(e.src, "hqdn3d=2.0:2.0:8:8", e.dst), nil
			},
		},

		// effects
		{
			id: "grain", tag: "grain", name: "Film grain", group: domain.GroupEffects,
			description: "Add temporal noise.",
			params:      []string{"grain_strength"},
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				s := e.params.Int("grain_strength", 10)
				return filterArgs(e.src, fmt.Sprintf("noise=alls=%d:allf=t+u", s), e.dst), nil
			},
		},
		{
			id: "vignette", tag: "vig", name: "Vignette", group: domain.GroupEffects,
			description: "Darken the frame corners.",
			params:      []string{"vignette_strength"},
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				angle := e.params.Float("vignette_strength", math.Pi/4)
				return filterArgs(e.src, "vignette="+formatFloat(angle), e.dst), nil
			},
		},
		{
			id: "border", tag: "border", name: "Border", group: domain.GroupEffects,
			description: "Frame the picture with the border image, or a black pad of the same size.",
			params:      []string{"border_width"},
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				if frame, ok := e.params.Material(domain.MaterialBorder); ok {
					return overlayArgs(e.src, frame, e.dst, "[1:v][0:v]scale2ref[f][v];[v][f]overlay=0:0"), nil
				}
				w := e.params.Int("border_width", 20)
				if w < 0 {
					return nil, fmt.Errorf("border_width must not be negative: %d", w)
				}
				filter := fmt.Sprintf("scale=trunc((iw-%[1]d)/2)*2:trunc((ih-%[1]d)/2)*2,pad=iw+%[1]d:ih+%[1]d:%[2]d:%[2]d:black", 2*w, w)
				return filterArgs(e.src, filter, e.dst), nil
			},
		},

		{
			id: "pull", tag: "pull", name: "Frame pull", group: domain.GroupEffects,
			description: "Keep every 30th frame and drop the audio.",
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				return []string{"-i", e.src, "-vf", "select='not(mod(n,30))',setpts=N/FRAME_RATE/TB", "-an", e.dst}, nil
			},
		},
		{
			id: "corner", tag: "corner", name: "Blurred corners", group: domain.GroupEffects,
			description: "Box-blur the four corner quarters of the frame.",
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				return graphArgs(e.src, cornerGraph(), e.dst), nil
			},
		},
		{
			id: "dissolve", tag: "ai_dis", name: "Dissolve", group: domain.GroupEffects,
			description: "One-second fade in and fade out.",
			build: func(ctx context.Context, e buildEnv) ([]string, error) {
				start, err := fadeOutStart(ctx, e, 1)
				if err != nil {
					return nil, err
				}
				filter := fmt.Sprintf("fade=t=in:st=0:d=1,fade=t=out:st=%s:d=1", start)
				return filterArgs(e.src, filter, e.dst), nil
			},
		},
		{
			id: "scan", tag: "scan", name: "Scan pulse", group: domain.GroupEffects,
			description: "Slow sinusoidal brightness pulse.",
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				return filterArgs(e.src, "eq=brightness='0.08*sin(2*PI*t/3)':eval=frame", e.dst), nil
			},
		},
		{
			id: "bounce", tag: "bounce", name: "Bounce", group: domain.GroupEffects,
			description: "Shrink the picture and float it over a blurred copy of itself.",
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				graph := "[0:v]split=2[bg][fg];[bg]boxblur=20[bgb];[fg]scale=trunc(iw*0.85/2)*2:-2[fgs];" +
					"[bgb][fgs]overlay=x='(W-w)/2+20*sin(t)':y='(H-h)/2+10*cos(t*1.5)'"
				return graphArgs(e.src, graph, e.dst), nil
			},
		},
		{
			id: "trifold", tag: "ab_tri", name: "Trifold", group: domain.GroupEffects,
			description: "Three panels side by side, the middle one mirrored.",
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				return graphArgs(e.src, "[0:v]split=3[a][b][c];[b]hflip[bf];[a][bf][c]hstack=inputs=3", e.dst), nil
			},
		},
		{
			id: "lava", tag: "ab_lava", name: "Lava", group: domain.GroupEffects,
			description: "Oscillating contrast with boosted saturation.",
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				return filterArgs(e.src, "eq=contrast='1+0.3*sin(t)':saturation=1.5:eval=frame", e.dst), nil
			},
		},
		{
			id: "flash", tag: "flash", name: "Flash", group: domain.GroupEffects,
			description: "Fast brightness flicker.",
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				return filterArgs(e.src, "eq=brightness='0.1*sin(10*t)':eval=frame", e.dst), nil
			},
		},
		{
			id: "progressive", tag: "prog", name: "Progressive", group: domain.GroupEffects,
			description: "Half-second fades with a gentle contrast wave.",
			build: func(ctx context.Context, e buildEnv) ([]string, error) {
				start, err := fadeOutStart(ctx, e, 0.5)
				if err != nil {
					return nil, err
				}
				filter := fmt.Sprintf("fade=t=in:st=0:d=0.5,fade=t=out:st=%s:d=0.5,eq=contrast='1+0.1*sin(2*PI*t/2)':eval=frame", start)
				return filterArgs(e.src, filter, e.dst), nil
			},
		},
		{
			id: "ab_blend", tag: "ab_blend", name: "Self blend", group: domain.GroupEffects,
			description: "Overlay-blend the picture with itself at half opacity.",
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				return graphArgs(e.src, "[0:v]split=2[a][b];[a][b]blend=all_mode=overlay:all_opacity=0.5", e.dst), nil
			},
		},
		{
			id: "ab_glitch", tag: "ab_glitch", name: "Glitch", group: domain.GroupEffects,
			description: "Heavy temporal noise with slightly muted colour.",
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				return filterArgs(e.src, "noise=alls=20:allf=t,hue=s=0.8", e.dst), nil
			},
		},
		{
			id: "ab_shake", tag: "ab_shake", name: "Shake", group: domain.GroupEffects,
			description: "Jitter a slightly smaller window around the frame.",
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				return filterArgs(e.src, "crop=iw-10:ih-10:5+5*sin(t*10):5+5*cos(t*10),scale=iw+10:ih+10", e.dst), nil
			},
		},
		{
			id: "ab_chroma", tag: "ab_chroma", name: "Chroma shift", group: domain.GroupEffects,
			description: "Shift the chroma planes in opposite directions.",
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				return graphArgs(e.src, "chromashift=cb=4:cr=-4:edge=smear", e.dst), nil
			},
		},
		{
			id: "ab_replace", tag: "ab_replace", name: "Contrast nudge", group: domain.GroupEffects,
			description: "Raise contrast by five percent.",
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				return filterArgs(e.src, "eq=contrast=1.05", e.dst), nil
			},
		},
		{
			id: "ab_advanced_replace", tag: "ab_adv", name: "Contrast and brightness nudge", group: domain.GroupEffects,
			description: "Raise contrast and brightness slightly.",
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				return filterArgs(e.src, "eq=contrast=1.08:brightness=0.02", e.dst), nil
			},
		},
		{
			id: "ab_real_replace", tag: "ab_real", name: "Saturation nudge", group: domain.GroupEffects,
			description: "Raise saturation by ten percent.",
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				return filterArgs(e.src, "eq=saturation=1.1", e.dst), nil
			},
		},

		// audio
		{
			id: "mute", tag: "mute", name: "Mute", group: domain.GroupAudio,
			description: "Drop the audio track, video stream copied.",
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				return []string{"-i", e.src, "-c:v", "copy", "-an", e.dst}, nil
			},
		},
		{
			id: "pitch", tag: "pitch", name: "Pitch shift", group: domain.GroupAudio,
			description: "Shift audio pitch by a random number of semitones.",
			params:      []string{"pitch_range"},
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				r := math.Abs(e.params.Float("pitch_range", 0.8))
				factor := math.Pow(2, uniform(-r, r)/12)
				filter := fmt.Sprintf("asetrate=44100*%s,aresample=44100,atempo=%s",
					formatFloat(factor), formatFloat(1/factor))
				return []string{"-i", e.src, "-c:v", "copy", "-af", filter, e.dst}, nil
			},
		},
		{
			id: "audio_noise", tag: "anoise", name: "Background noise", group: domain.GroupAudio,
			description: "Mix faint white noise into the audio track.",
			params:      []string{"noise_strength"},
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				amp := e.params.Float("noise_strength", 0.003)
				graph := fmt.Sprintf("aevalsrc=-2+random(0):s=44100,volume=%s[n];[0:a][n]amix=inputs=2:duration=first[a]", formatFloat(amp))
				return []string{
					"-i", e.src,
					"-filter_complex", graph,
					"-map", "0:v", "-map", "[a]",
					"-c:v", "copy",
					e.dst,
				}, nil
			},
		},

		// materials
		{
			id: "watermark", tag: "watermark", name: "Watermark", group: domain.GroupMaterials,
			description: "Overlay the watermark image, or a text mark when none is configured.",
			params:      []string{"watermark_opacity", "watermark_position"},
			build: func(_ context.Context, e buildEnv) ([]string, error) {
				opacity := e.params.Float("watermark_opacity", 0.5)
				pos, err := overlayPosition(e.params.String("watermark_position", "bottom_right"))
				if err != nil {
					return nil, err
				}
				img, ok := e.params.Material(domain.MaterialWatermark)
				if !ok {
					filter := fmt.Sprintf("drawtext=expansion=none:text=%s:fontcolor=white@%s:fontsize=h/24:%s",
						drawtextValue(e.params.String("watermark_text", "matrix")), formatFloat(opacity), textPosition(pos))
					return filterArgs(e.src, filter, e.dst), nil
				}
				return overlayArgs(e.src, img, e.dst,
					fmt.Sprintf("[1:v]format=rgba,colorchannelmixer=aa=%s[wm];[0:v][wm]overlay=%s", formatFloat(opacity), pos)), nil
			},
		},
		materialOverlay("sticker", "sticker", "Sticker", domain.MaterialSticker,
			"Overlay a sticker image at a random corner.",
			func(e buildEnv) (string, error) {
				pos, _ := overlayPosition(pick([]string{"top_left", "top_right", "bottom_left", "bottom_right"}))
				return "[1:v]scale=iw/6:-2[s];[0:v][s]overlay=" + pos, nil
			}),
		materialOverlay("mask", "mask", "Mask overlay", domain.MaterialMask,
			"Blend a full-frame mask image over the picture.",
			func(e buildEnv) (string, error) {
				opacity := formatFloat(e.params.Float("mask_opacity", 0.15))
				return "[1:v][0:v]scale2ref[m][v];[m]format=rgba,colorchannelmixer=aa=" + opacity + "[mm];[v][mm]overlay=0:0", nil
			}),
		materialOverlay("light_effect", "light", "Light leak", domain.MaterialLightEffect,
			"Screen-blend a light effect clip over the picture.",
			func(e buildEnv) (string, error) {
				return "[1:v][0:v]scale2ref[l][v];[v][l]blend=all_mode=screen:shortest=1", nil
			}),
		materialOverlay("pip", "pip", "Picture in picture", domain.MaterialPIP,
			"Overlay a quarter-size clip in a corner.",
			func(e buildEnv) (string, error) {
				return "[1:v]scale=iw/4:-2[p];[0:v][p]overlay=W-w-10:H-h-10:shortest=1", nil
			}),
		materialOverlay("goods", "goods", "Product card", domain.MaterialGoods,
			"Overlay a product card image in the lower third.",
			func(e buildEnv) (string, error) {
				return "[1:v]scale=iw/3:-2[g];[0:v][g]overlay=(W-w)/2:H-h-H/10", nil
			}),
		materialOverlay("mask_video", "mask_video", "Video mask", domain.MaterialMaskVideo,
			"Multiply-blend a mask clip over the picture.",
			func(e buildEnv) (string, error) {
				return "[1:v][0:v]scale2ref[m][v];[v][m]blend=all_mode=multiply:shortest=1", nil
			}),
	}
}

// materialOverlay builds a two-input overlay transformation that requires a
// material file.
func materialOverlay(id, tag, name, material, description string, graph func(buildEnv) (string, error)) recipe {
	return recipe{
		id: id, tag: tag, name: name, group: domain.GroupMaterials,
		description: description,
		build: func(_ context.Context, e buildEnv) ([]string, error) {
			path, ok := e.params.Material(material)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrMissingMaterial, material)
			}
			g, err := graph(e)
			if err != nil {
				return nil, err
			}
			return overlayArgs(e.src, path, e.dst, g), nil
		},
	}
}

func overlayArgs(src, material, dst, graph string) []string {
	return []string{
		"-i", src,
		"-i", material,
		"-filter_complex", graph,
		"-c:a", "copy",
		dst,
	}
}

func graphArgs(src, graph, dst string) []string {
	return []string{"-i", src, "-filter_complex", graph, "-c:a", "copy", dst}
}

func cornerGraph() string {
	corners := []string{"0:0", "iw*3/4:0", "0:ih*3/4", "iw*3/4:ih*3/4"}
	var b strings.Builder
	b.WriteString("[0:v]split=5[main][c0][c1][c2][c3]")
	for i, at := range corners {
		fmt.Fprintf(&b, ";[c%d]crop=iw/4:ih/4:%s,boxblur=10[b%d]", i, at, i)
	}
	prev := "main"
	for i, at := range []string{"0:0", "W*3/4:0", "0:H*3/4", "W*3/4:H*3/4"} {
		fmt.Fprintf(&b, ";[%s][b%d]overlay=%s", prev, i, at)
		if i < len(corners)-1 {
			prev = fmt.Sprintf("t%d", i)
			fmt.Fprintf(&b, "[%s]", prev)
		}
	}
	return b.String()
}

// fadeOutStart returns when a fade of length d must start to end with the clip.
func fadeOutStart(ctx context.Context, e buildEnv, d float64) (string, error) {
	duration, err := e.tool.ProbeDuration(ctx, e.src)
	if err != nil {
		return "", err
	}
	return formatFloat(math.Max(0, duration-d)), nil
}

// drawtextValue escapes literal text for a drawtext option inside a -vf
// graph: once for the option parser, then once for the graph parser.
func drawtextValue(text string) string {
	return escapeChars(escapeChars(text, `\':`), `\'[],;`)
}

func escapeChars(s, special string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(special, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func centerCrop(ratio float64) string {
	r := formatFloat(ratio)
	return fmt.Sprintf("crop=trunc(iw*%[1]s/2)*2:trunc(ih*%[1]s/2)*2:(iw-ow)/2:(ih-oh)/2", r)
}

// overlayPosition maps a named corner to overlay x:y expressions.
func overlayPosition(name string) (string, error) {
	switch name {
	case "top_left":
		return "10:10", nil
	case "top_right":
		return "W-w-10:10", nil
	case "bottom_left":
		return "10:H-h-10", nil
	case "bottom_right":
		return "W-w-10:H-h-10", nil
	case "center":
		return "(W-w)/2:(H-h)/2", nil
	}
	return "", fmt.Errorf("unknown position %q", name)
}

// textPosition converts overlay coordinates to drawtext ones.
func textPosition(pos string) string {
	x, y, _ := strings.Cut(pos, ":")
	r := strings.NewReplacer("W", "w", "H", "h", "w-", "text_w-", "h-", "text_h-")
	if strings.HasPrefix(x, "(") {
		x = "(w-text_w)/2"
		y = "(h-text_h)/2"
	} else {
		x, y = r.Replace(x), r.Replace(y)
	}
	return "x=" + x + ":y=" + y
}

// doubleRate doubles a bitrate like "15M" or "800k".
func doubleRate(rate string) (string, error) {
	rate = strings.TrimSpace(rate)
	if rate == "" {
		return "", fmt.Errorf("empty bitrate")
	}
	unit := ""
	num := rate
	if last := rate[len(rate)-1]; last == 'k' || last == 'K' || last == 'M' || last == 'm' {
		unit = string(last)
		num = rate[:len(rate)-1]
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || v <= 0 {
		return "", fmt.Errorf("invalid bitrate %q", rate)
	}
	return formatFloat(v*2) + unit, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
