package domain

// TransformationGroup buckets transformations for display.
type TransformationGroup string

const (
	GroupBasic     TransformationGroup = "basic"
	GroupVisual    TransformationGroup = "visual"
	GroupAudio     TransformationGroup = "audio"
	GroupEffects   TransformationGroup = "effects"
	GroupMaterials TransformationGroup = "materials"
)

// Material slot names carried in the batch configuration.
const (
	MaterialWatermark   = "watermark"
	MaterialMask        = "mask"
	MaterialSticker     = "sticker"
	MaterialBorder      = "border"
	MaterialLightEffect = "light_effect"
	MaterialPIP         = "pip"
	MaterialGoods       = "goods"
	MaterialMaskVideo   = "mask_video"
)

// MaterialSlots lists every material slot in display order.
var MaterialSlots = []string{
	MaterialWatermark,
	MaterialMask,
	MaterialSticker,
	MaterialBorder,
	MaterialLightEffect,
	MaterialPIP,
	MaterialGoods,
	MaterialMaskVideo,
}

// TransformationOption describes one selectable transformation.
type TransformationOption struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Tag         string              `json:"tag"`
	Group       TransformationGroup `json:"group"`
	Description string              `json:"description,omitempty"`
	Params      []string            `json:"params,omitempty"`
}
