package command_parser

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"novelai_bot/entities"
	"novelai_bot/novelai_api"
)

const defaultPrefix = "/nai"

var generalKeys = map[string]bool{
	"正面词条":   true,
	"负面词条":   true,
	"是否有福瑞":  true,
	"添加质量词":  true,
	"底图":     true,
	"底图重绘强度": true,
	"底图加噪强度": true,
	"分辨率":    true,
	"步数":     true,
	"指导系数":   true,
	"重采样系数":  true,
	"种子":     true,
	"采样器":    true,
	"角色是否分区": true,
	"角色参考":   true,
	"角色参考强度": true,
	"是否注意原画风": true,
	"模型":     true,
}

var characterSuffixes = []string{"正面词条", "负面词条", "位置"}

type parserImpl struct {
	prefix string
}

type Config struct {
	Prefix string
}

func New(cfg Config) (Parser, error) {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	if strings.ContainsAny(prefix, " \t\n") {
		return nil, errors.New("invalid command prefix")
	}
	return &parserImpl{prefix: prefix}, nil
}

func (p *parserImpl) Parse(message string) (*entities.ParsedParams, error) {
	if message == "" {
		return nil, newParseError("", "指令格式错误，缺少"+p.prefix+"开头")
	}

	// Full-width commas act as separators too.
	normalized := strings.ReplaceAll(message, "，", ",")

	stripped := strings.TrimSpace(normalized)
	if !strings.HasPrefix(stripped, p.prefix) {
		return nil, newParseError("", "指令格式错误，缺少"+p.prefix+"开头")
	}

	content := strings.TrimSpace(stripped[len(p.prefix):])
	if content == "" {
		return nil, newParseError("正面词条", "未填写提示词")
	}

	pairs := scanPairs(content)
	if len(pairs) == 0 {
		return nil, newParseError("", "参数格式错误，请使用 Key:<Value> 格式")
	}

	general := make(map[string]string)
	characterParams := make(map[int]map[string]string)

	for _, kv := range pairs {
		matched, err := routeCharacterKey(characterParams, kv.key, kv.value)
		if err != nil {
			return nil, err
		}
		if matched {
			continue
		}
		if !generalKeys[kv.key] {
			return nil, newParseError(kv.key, "未知参数: "+kv.key)
		}
		general[kv.key] = kv.value
	}

	positivePrompt := general["正面词条"]
	if positivePrompt == "" {
		return nil, newParseError("正面词条", "未填写提示词")
	}

	modelName := general["模型"]
	negativePrompt := general["负面词条"]
	negativePreset := "Heavy"

	furryMode, err := parseBool(general, "是否有福瑞", false)
	if err != nil {
		return nil, err
	}
	addQuality, err := parseBool(general, "添加质量词", false)
	if err != nil {
		return nil, err
	}

	baseImage := general["底图"]
	baseStrength, err := parseFloat(general, "底图重绘强度", 0.7, 0.0, 1.0)
	if err != nil {
		return nil, err
	}
	baseNoise, err := parseFloat(general, "底图加噪强度", 0.0, 0.0, 0.99)
	if err != nil {
		return nil, err
	}

	resolutionKey, ok := general["分辨率"]
	if !ok {
		resolutionKey = novelai_api.DefaultResolution
	}
	resolution, ok := novelai_api.ResolutionMap[resolutionKey]
	if !ok {
		return nil, newParseError("分辨率", "分辨率参数无效")
	}

	steps, err := parseIntInRange(general, "步数", 28, 1, 28)
	if err != nil {
		return nil, err
	}
	guidance, err := parseFloat(general, "指导系数", 5.0, 0.0, 10.0)
	if err != nil {
		return nil, err
	}
	cfgRescale, err := parseFloat(general, "重采样系数", 0.0, 0.0, 1.0)
	if err != nil {
		return nil, err
	}
	seed, err := parseInt(general, "种子")
	if err != nil {
		return nil, err
	}

	sampler, ok := general["采样器"]
	if !ok {
		sampler = "k_euler_ancestral"
	}
	if !novelai_api.IsSupportedSampler(sampler) {
		return nil, newParseError("采样器", "采样器参数无效")
	}

	useZones, err := parseBool(general, "角色是否分区", false)
	if err != nil {
		return nil, err
	}

	if len(characterParams) > 5 {
		return nil, newParseError("角色", "角色数量最多支持5个")
	}

	characters, err := buildCharacters(characterParams)
	if err != nil {
		return nil, err
	}
	if len(characters) <= 1 {
		useZones = false
	}

	characterReference := general["角色参考"]
	if characterReference != "" && baseImage != "" {
		// An explicit base image wins over a character reference.
		characterReference = ""
	}

	characterReferenceStrength, err := parseFloat(general, "角色参考强度", 1.0, 0.0, 1.0)
	if err != nil {
		return nil, err
	}

	styleAware, err := parseBool(general, "是否注意原画风", false)
	if err != nil {
		return nil, err
	}

	// The model name stays unvalidated here: the command handler resolves
	// the effective model (explicit, per member default, global default)
	// and rejects unknown ones itself.
	return &entities.ParsedParams{
		PositivePrompt:             positivePrompt,
		NegativePrompt:             negativePrompt,
		NegativePreset:             negativePreset,
		ModelName:                  modelName,
		FurryMode:                  furryMode,
		AddQualityTags:             addQuality,
		BaseImage:                  baseImage,
		BaseStrength:               baseStrength,
		BaseNoise:                  baseNoise,
		Width:                      resolution.Width,
		Height:                     resolution.Height,
		Steps:                      steps,
		Guidance:                   guidance,
		CfgRescale:                 cfgRescale,
		Seed:                       seed,
		Sampler:                    sampler,
		UseCharacterZones:          useZones,
		Characters:                 characters,
		CharacterReference:         characterReference,
		CharacterReferenceStrength: characterReferenceStrength,
		StyleAware:                 styleAware,
		RawParams:                  general,
	}, nil
}

// routeCharacterKey files 角色N正面词条 / 角色N负面词条 / 角色N位置 keys into the
// per-character map. Keys starting with 角色 but carrying no known suffix are
// not character keys and fall through to general key handling.
func routeCharacterKey(params map[int]map[string]string, key, value string) (bool, error) {
	if !strings.HasPrefix(key, "角色") {
		return false, nil
	}

	var suffix string
	for _, s := range characterSuffixes {
		if strings.HasSuffix(key, s) {
			suffix = s
			break
		}
	}
	if suffix == "" {
		return false, nil
	}

	indexPart := key[len("角色") : len(key)-len(suffix)]
	if !isASCIIDigits(indexPart) {
		return false, newParseError(key, "角色参数格式错误: "+key)
	}
	index, err := strconv.Atoi(indexPart)
	if err != nil {
		return false, newParseError(key, "角色参数格式错误: "+key)
	}
	if index < 1 || index > 5 {
		return false, newParseError(key, "角色序号仅支持1-5")
	}

	entry := params[index]
	if entry == nil {
		entry = make(map[string]string)
		params[index] = entry
	}
	switch suffix {
	case "正面词条":
		entry["positive"] = value
	case "负面词条":
		entry["negative"] = value
	case "位置":
		entry["position"] = value
	}
	return true, nil
}

func buildCharacters(characterParams map[int]map[string]string) ([]entities.CharacterPrompt, error) {
	indexes := make([]int, 0, len(characterParams))
	for index := range characterParams {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)

	characters := make([]entities.CharacterPrompt, 0, len(indexes))
	for _, index := range indexes {
		data := characterParams[index]
		positive := data["positive"]
		if positive == "" {
			return nil, newParseError(fmt.Sprintf("角色%d", index), fmt.Sprintf("角色%d缺少正面词条", index))
		}
		position := strings.ToUpper(data["position"])
		if position == "" {
			position = "C3"
		}
		if !novelai_api.IsValidPosition(position) {
			return nil, newParseError(fmt.Sprintf("角色%d", index), fmt.Sprintf("角色%d位置参数无效", index))
		}
		characters = append(characters, entities.CharacterPrompt{
			Index:    index,
			Positive: positive,
			Negative: data["negative"],
			Position: position,
		})
	}
	return characters, nil
}

func parseBool(params map[string]string, key string, def bool) (bool, error) {
	raw, ok := params[key]
	if !ok {
		return def, nil
	}
	switch strings.TrimSpace(raw) {
	case "是", "true", "True", "1", "yes", "YES":
		return true, nil
	case "否", "false", "False", "0", "no", "NO":
		return false, nil
	}
	return false, newParseError(key, key+"参数无效，只能填写'是'或'否'")
}

func parseFloat(params map[string]string, key string, def, min, max float64) (float64, error) {
	raw, ok := params[key]
	if !ok || strings.TrimSpace(raw) == "" {
		return def, nil
	}
	number, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, newParseError(key, key+"参数必须是数字")
	}
	if number < min {
		return 0, newParseError(key, key+"参数不能小于"+formatLimit(min))
	}
	if number > max {
		return 0, newParseError(key, key+"参数不能大于"+formatLimit(max))
	}
	return number, nil
}

func parseIntInRange(params map[string]string, key string, def, min, max int) (int, error) {
	raw, ok := params[key]
	if !ok || strings.TrimSpace(raw) == "" {
		return def, nil
	}
	number, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, newParseError(key, key+"参数必须是整数")
	}
	if number < min {
		return 0, newParseError(key, fmt.Sprintf("%s参数不能小于%d", key, min))
	}
	if number > max {
		return 0, newParseError(key, fmt.Sprintf("%s参数不能大于%d", key, max))
	}
	return number, nil
}

func parseInt(params map[string]string, key string) (*int64, error) {
	raw, ok := params[key]
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	number, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil, newParseError(key, key+"参数必须是整数")
	}
	return &number, nil
}

// formatLimit renders numeric bounds the way users see them in the help
// text: whole numbers keep one decimal place (0.0, 1.0), fractional bounds
// print as is (0.99).
func formatLimit(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func isASCIIDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
