package catalog

import "vistora/internal/domain"

var defaultCards = []Card{
	{ID: "yolo11x-seg-baseline", Role: RoleDetector, Family: "YOLO segmentation", Objective: "balanced", Maturity: "baseline",
		Notes: "Stable baseline for segmentation-style mosaic detection."},
	{ID: "rtdetrv2-l-candidate", Role: RoleDetector, Family: "RT-DETRv2", Objective: "quality-first", Maturity: "candidate",
		Notes: "Transformer detector candidate for stronger boundary quality."},
	{ID: "mask2former-swinl-candidate", Role: RoleDetector, Family: "Mask2Former", Objective: "quality-first", Maturity: "candidate",
		Notes: "High-quality mask prediction candidate for hard scenes."},
	{ID: "basicvsrpp-v2-baseline", Role: RoleRestorer, Family: "BasicVSR++", Objective: "balanced", Maturity: "baseline",
		Notes: "Baseline restoration backbone with good stability."},
	{ID: "rvrt-base-candidate", Role: RoleRestorer, Family: "RVRT", Objective: "quality-first", Maturity: "candidate",
		Notes: "Video transformer candidate with improved temporal modeling."},
	{ID: "vrt-large-candidate", Role: RoleRestorer, Family: "VRT", Objective: "quality-first", Maturity: "candidate",
		Notes: "High-capacity transformer candidate for best quality mode."},
	{ID: "swinir-video-refiner-candidate", Role: RoleRefiner, Family: "SwinIR-style refiner", Objective: "quality-first", Maturity: "candidate",
		Notes: "Post-refinement pass to suppress ringing and texture artifacts."},
	{ID: "diffusion-video-refiner-candidate", Role: RoleRefiner, Family: "Diffusion refiner", Objective: "quality-first", Maturity: "candidate",
		Notes: "Optional heavy refiner for highest perceptual quality setting."},
}

var defaultPresets = []Preset{
	{Tier: domain.TierBalanced, Detector: "yolo11x-seg-baseline", Restorer: "basicvsrpp-v2-baseline",
		Notes: "Default quality baseline with low risk."},
	{Tier: domain.TierHigh, Detector: "rtdetrv2-l-candidate", Restorer: "rvrt-base-candidate", Refiner: "swinir-video-refiner-candidate",
		Notes: "Quality-first recommended profile for most runs."},
	{Tier: domain.TierUltra, Detector: "mask2former-swinl-candidate", Restorer: "vrt-large-candidate", Refiner: "diffusion-video-refiner-candidate",
		Notes: "Maximum quality profile for best visual output."},
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(defaultCards, defaultPresets)
	if err != nil {
		panic("catalog: invalid built-in catalog: " + err.Error())
	}
	return c
}
