package command_parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novelai_bot/entities"
)

func newTestParser(t *testing.T) Parser {
	t.Helper()
	parser, err := New(Config{})
	require.NoError(t, err)
	return parser
}

func mustParse(t *testing.T, message string) *entities.ParsedParams {
	t.Helper()
	parsed, err := newTestParser(t).Parse(message)
	require.NoError(t, err)
	return parsed
}

func parseMessage(t *testing.T, message string) *ParseError {
	t.Helper()
	_, err := newTestParser(t).Parse(message)
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	return parseErr
}

func TestNew_PrefixValidation(t *testing.T) {
	parser, err := New(Config{Prefix: "/draw"})
	require.NoError(t, err)

	parsed, err := parser.Parse("/draw 正面词条:<cat>")
	require.NoError(t, err)
	assert.Equal(t, "cat", parsed.PositivePrompt)

	_, err = New(Config{Prefix: "/nai x"})
	require.Error(t, err)
}

func TestParse_MinimalCommand(t *testing.T) {
	parsed := mustParse(t, "/nai 正面词条:<1girl, silver hair>")

	assert.Equal(t, "1girl, silver hair", parsed.PositivePrompt)
	assert.Empty(t, parsed.NegativePrompt)
	assert.Equal(t, "Heavy", parsed.NegativePreset)
	assert.Empty(t, parsed.ModelName)
	assert.False(t, parsed.FurryMode)
	assert.False(t, parsed.AddQualityTags)
	assert.Empty(t, parsed.BaseImage)
	assert.Equal(t, 0.7, parsed.BaseStrength)
	assert.Equal(t, 0.0, parsed.BaseNoise)
	assert.Equal(t, 832, parsed.Width)
	assert.Equal(t, 1216, parsed.Height)
	assert.Equal(t, 28, parsed.Steps)
	assert.Equal(t, 5.0, parsed.Guidance)
	assert.Equal(t, 0.0, parsed.CfgRescale)
	assert.Nil(t, parsed.Seed)
	assert.Equal(t, "k_euler_ancestral", parsed.Sampler)
	assert.False(t, parsed.UseCharacterZones)
	assert.Empty(t, parsed.Characters)
	assert.Empty(t, parsed.CharacterReference)
	assert.Equal(t, 1.0, parsed.CharacterReferenceStrength)
	assert.False(t, parsed.StyleAware)
}

func TestParse_AllParameters(t *testing.T) {
	parsed := mustParse(t, "/nai 正面词条:<1girl, solo> 负面词条:<lowres> 是否有福瑞:<是> "+
		"添加质量词:<是> 底图重绘强度:<0.5> 底图加噪强度:<0.2> 分辨率:<方图> 步数:<20> "+
		"指导系数:<7.5> 重采样系数:<0.3> 种子:<987654321> 采样器:<k_dpmpp_2m> "+
		"角色是否分区:<是> 角色1正面词条:<red hair> 角色1位置:<a2> "+
		"角色2正面词条:<blue hair> 角色2负面词条:<bad hands> 角色2位置:<D4> "+
		"角色参考:<1> 角色参考强度:<0.8> 是否注意原画风:<是> 模型:<nai-diffusion-3>")

	assert.Equal(t, "1girl, solo", parsed.PositivePrompt)
	assert.Equal(t, "lowres", parsed.NegativePrompt)
	assert.True(t, parsed.FurryMode)
	assert.True(t, parsed.AddQualityTags)
	assert.Equal(t, 0.5, parsed.BaseStrength)
	assert.Equal(t, 0.2, parsed.BaseNoise)
	assert.Equal(t, 1024, parsed.Width)
	assert.Equal(t, 1024, parsed.Height)
	assert.Equal(t, 20, parsed.Steps)
	assert.Equal(t, 7.5, parsed.Guidance)
	assert.Equal(t, 0.3, parsed.CfgRescale)
	require.NotNil(t, parsed.Seed)
	assert.Equal(t, int64(987654321), *parsed.Seed)
	assert.Equal(t, "k_dpmpp_2m", parsed.Sampler)
	assert.True(t, parsed.UseCharacterZones)
	assert.Equal(t, "1", parsed.CharacterReference)
	assert.Equal(t, 0.8, parsed.CharacterReferenceStrength)
	assert.True(t, parsed.StyleAware)
	assert.Equal(t, "nai-diffusion-3", parsed.ModelName)

	require.Len(t, parsed.Characters, 2)
	assert.Equal(t, entities.CharacterPrompt{
		Index:    1,
		Positive: "red hair",
		Position: "A2",
	}, parsed.Characters[0])
	assert.Equal(t, entities.CharacterPrompt{
		Index:    2,
		Positive: "blue hair",
		Negative: "bad hands",
		Position: "D4",
	}, parsed.Characters[1])
}

func TestParse_PrefixRequired(t *testing.T) {
	for _, message := range []string{"", "nai 正面词条:<x>", "/imagine 正面词条:<x>"} {
		parseErr := parseMessage(t, message)
		assert.Equal(t, "指令格式错误，缺少/nai开头", parseErr.Message)
	}
}

func TestParse_EmptyContent(t *testing.T) {
	for _, message := range []string{"/nai", "/nai   "} {
		parseErr := parseMessage(t, message)
		assert.Equal(t, "未填写提示词", parseErr.Message)
	}
}

func TestParse_NoPairs(t *testing.T) {
	parseErr := parseMessage(t, "/nai 画一只猫")
	assert.Equal(t, "参数格式错误，请使用 Key:<Value> 格式", parseErr.Message)
}

func TestParse_MissingPositivePrompt(t *testing.T) {
	parseErr := parseMessage(t, "/nai 步数:<20>")
	assert.Equal(t, "未填写提示词", parseErr.Message)
}

func TestParse_FullWidthPunctuation(t *testing.T) {
	parsed := mustParse(t, "/nai 正面词条：<少女，银发> 步数：<20>")

	// Full-width commas are normalized before parsing.
	assert.Equal(t, "少女,银发", parsed.PositivePrompt)
	assert.Equal(t, 20, parsed.Steps)
}

func TestParse_UnknownKey(t *testing.T) {
	parseErr := parseMessage(t, "/nai 正面词条:<x> 质量:<高>")
	assert.Equal(t, "未知参数: 质量", parseErr.Message)
	assert.Equal(t, "质量", parseErr.Field)
}

func TestParse_ValueContainingAngleBracket(t *testing.T) {
	parsed := mustParse(t, "/nai 正面词条:<a > b> 步数:<20>")
	assert.Equal(t, "a > b", parsed.PositivePrompt)
	assert.Equal(t, 20, parsed.Steps)
}

func TestParse_MultilineValue(t *testing.T) {
	parsed := mustParse(t, "/nai 正面词条:<first line\nsecond line> 步数:<20>")
	assert.Equal(t, "first line\nsecond line", parsed.PositivePrompt)
	assert.Equal(t, 20, parsed.Steps)
}

func TestParse_LeadingJunkSkipped(t *testing.T) {
	parsed := mustParse(t, "/nai 给我画 正面词条:<cat>")
	assert.Equal(t, "cat", parsed.PositivePrompt)
}

func TestParse_TrailingJunkExtendsValue(t *testing.T) {
	// Free text after a closed value keeps the value open until a '>' that
	// is followed by a proper opener or the end of input. The stray text
	// and the next pair end up inside the previous value.
	parsed := mustParse(t, "/nai 正面词条:<cat> 多加点细节 步数:<20>")
	assert.Equal(t, "cat> 多加点细节 步数:<20", parsed.PositivePrompt)
	assert.Equal(t, 28, parsed.Steps)
}

func TestParse_BoolValues(t *testing.T) {
	truthy := []string{"是", "true", "True", "1", "yes", "YES"}
	for _, value := range truthy {
		parsed := mustParse(t, "/nai 正面词条:<x> 是否有福瑞:<"+value+">")
		assert.True(t, parsed.FurryMode, "expected %q to parse as true", value)
	}

	falsy := []string{"否", "false", "False", "0", "no", "NO"}
	for _, value := range falsy {
		parsed := mustParse(t, "/nai 正面词条:<x> 是否有福瑞:<"+value+">")
		assert.False(t, parsed.FurryMode, "expected %q to parse as false", value)
	}

	for _, value := range []string{"嗯", "maybe", ""} {
		parseErr := parseMessage(t, "/nai 正面词条:<x> 是否有福瑞:<"+value+">")
		assert.Equal(t, "是否有福瑞参数无效，只能填写'是'或'否'", parseErr.Message)
	}
}

func TestParse_NumericBounds(t *testing.T) {
	tests := []struct {
		name    string
		message string
		wantMsg string
	}{
		{"steps too high", "/nai 正面词条:<x> 步数:<29>", "步数参数不能大于28"},
		{"steps too low", "/nai 正面词条:<x> 步数:<0>", "步数参数不能小于1"},
		{"steps not a number", "/nai 正面词条:<x> 步数:<abc>", "步数参数必须是整数"},
		{"guidance too high", "/nai 正面词条:<x> 指导系数:<10.5>", "指导系数参数不能大于10.0"},
		{"guidance too low", "/nai 正面词条:<x> 指导系数:<-0.1>", "指导系数参数不能小于0.0"},
		{"guidance not a number", "/nai 正面词条:<x> 指导系数:<高>", "指导系数参数必须是数字"},
		{"cfg rescale too high", "/nai 正面词条:<x> 重采样系数:<1.2>", "重采样系数参数不能大于1.0"},
		{"base strength too high", "/nai 正面词条:<x> 底图重绘强度:<1.1>", "底图重绘强度参数不能大于1.0"},
		{"base noise too high", "/nai 正面词条:<x> 底图加噪强度:<0.995>", "底图加噪强度参数不能大于0.99"},
		{"reference strength too high", "/nai 正面词条:<x> 角色参考强度:<2>", "角色参考强度参数不能大于1.0"},
		{"seed not a number", "/nai 正面词条:<x> 种子:<abc>", "种子参数必须是整数"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parseErr := parseMessage(t, tt.message)
			assert.Equal(t, tt.wantMsg, parseErr.Message)
		})
	}
}

func TestParse_EmptyNumericValueUsesDefault(t *testing.T) {
	parsed := mustParse(t, "/nai 正面词条:<x> 步数:<> 指导系数:<> 种子:<>")
	assert.Equal(t, 28, parsed.Steps)
	assert.Equal(t, 5.0, parsed.Guidance)
	assert.Nil(t, parsed.Seed)
}

func TestParse_NegativeSeedAllowed(t *testing.T) {
	parsed := mustParse(t, "/nai 正面词条:<x> 种子:<-5>")
	require.NotNil(t, parsed.Seed)
	assert.Equal(t, int64(-5), *parsed.Seed)
}

func TestParse_Resolution(t *testing.T) {
	parsed := mustParse(t, "/nai 正面词条:<x> 分辨率:<横图>")
	assert.Equal(t, 1216, parsed.Width)
	assert.Equal(t, 832, parsed.Height)

	parseErr := parseMessage(t, "/nai 正面词条:<x> 分辨率:<全景>")
	assert.Equal(t, "分辨率参数无效", parseErr.Message)
}

func TestParse_Sampler(t *testing.T) {
	parsed := mustParse(t, "/nai 正面词条:<x> 采样器:<k_euler>")
	assert.Equal(t, "k_euler", parsed.Sampler)

	parseErr := parseMessage(t, "/nai 正面词条:<x> 采样器:<ddim>")
	assert.Equal(t, "采样器参数无效", parseErr.Message)
}

func TestParse_CharacterErrors(t *testing.T) {
	tests := []struct {
		name    string
		message string
		wantMsg string
	}{
		{"missing positive", "/nai 正面词条:<x> 角色1负面词条:<bad>", "角色1缺少正面词条"},
		{"invalid position", "/nai 正面词条:<x> 角色1正面词条:<girl> 角色1位置:<F9>", "角色1位置参数无效"},
		{"index zero", "/nai 正面词条:<x> 角色0正面词条:<girl>", "角色序号仅支持1-5"},
		{"index six", "/nai 正面词条:<x> 角色6正面词条:<girl>", "角色序号仅支持1-5"},
		{"bad index", "/nai 正面词条:<x> 角色x正面词条:<girl>", "角色参数格式错误: 角色x正面词条"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parseErr := parseMessage(t, tt.message)
			assert.Equal(t, tt.wantMsg, parseErr.Message)
		})
	}
}

func TestParse_CharacterDefaults(t *testing.T) {
	parsed := mustParse(t, "/nai 正面词条:<x> 角色1正面词条:<girl>")

	require.Len(t, parsed.Characters, 1)
	assert.Equal(t, "C3", parsed.Characters[0].Position)
	assert.Empty(t, parsed.Characters[0].Negative)
}

func TestParse_CharactersSortedByIndex(t *testing.T) {
	parsed := mustParse(t, "/nai 正面词条:<x> 角色3正面词条:<third> 角色1正面词条:<first>")

	require.Len(t, parsed.Characters, 2)
	assert.Equal(t, 1, parsed.Characters[0].Index)
	assert.Equal(t, "first", parsed.Characters[0].Positive)
	assert.Equal(t, 3, parsed.Characters[1].Index)
	assert.Equal(t, "third", parsed.Characters[1].Positive)
}

func TestParse_ZonesForcedOffForSingleCharacter(t *testing.T) {
	parsed := mustParse(t, "/nai 正面词条:<x> 角色是否分区:<是> 角色1正面词条:<girl>")
	assert.False(t, parsed.UseCharacterZones)

	parsed = mustParse(t, "/nai 正面词条:<x> 角色是否分区:<是> 角色1正面词条:<girl> 角色2正面词条:<boy>")
	assert.True(t, parsed.UseCharacterZones)

	// Without the explicit flag, zones stay off regardless of count.
	parsed = mustParse(t, "/nai 正面词条:<x> 角色1正面词条:<girl> 角色2正面词条:<boy>")
	assert.False(t, parsed.UseCharacterZones)
}

func TestParse_CharacterReferenceDiscardedWithBaseImage(t *testing.T) {
	parsed := mustParse(t, "/nai 正面词条:<x> 底图:<1> 角色参考:<2>")
	assert.Equal(t, "1", parsed.BaseImage)
	assert.Empty(t, parsed.CharacterReference)

	parsed = mustParse(t, "/nai 正面词条:<x> 角色参考:<2>")
	assert.Equal(t, "2", parsed.CharacterReference)
}

func TestParse_UnsupportedModelNamePassesThrough(t *testing.T) {
	// Model resolution happens in the command handler, not here.
	parsed := mustParse(t, "/nai 正面词条:<x> 模型:<sdxl-turbo>")
	assert.Equal(t, "sdxl-turbo", parsed.ModelName)
}

func TestParse_RawParamsHoldGeneralKeysOnly(t *testing.T) {
	parsed := mustParse(t, "/nai 正面词条:<x> 步数:<20> 角色1正面词条:<girl>")

	assert.Equal(t, "x", parsed.RawParams["正面词条"])
	assert.Equal(t, "20", parsed.RawParams["步数"])
	assert.NotContains(t, parsed.RawParams, "角色1正面词条")
}
