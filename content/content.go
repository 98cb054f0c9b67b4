// Package content 负责关卡内容编排：从 YAML 描述构建各关卡的静态对象集合。
package content

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"cursorworld/world"
)

//go:embed levels.yaml
var defaultLevels []byte

// Document 关卡文件
type Document struct {
	Levels []LevelSpec `yaml:"levels"`
}

// LevelSpec 单个关卡
type LevelSpec struct {
	Name    string       `yaml:"name"`
	Spawn   []int        `yaml:"spawn"`
	Objects []ObjectSpec `yaml:"objects"`
}

// ObjectSpec 单个对象；Box 为 [x, y, w, h]，文字只需要 [x, y]
type ObjectSpec struct {
	Type  string `yaml:"type"`
	Box   []int  `yaml:"box"`
	Color string `yaml:"color,omitempty"`

	Size     int    `yaml:"size,omitempty"`
	Centered bool   `yaml:"centered,omitempty"`
	Text     string `yaml:"text,omitempty"`

	Count            int   `yaml:"count,omitempty"`
	CountCurrentYear bool  `yaml:"count_current_year,omitempty"`
	Speed            int64 `yaml:"speed,omitempty"`

	TargetLevel *int  `yaml:"target_level,omitempty"`
	TargetPoint []int `yaml:"target_point,omitempty"`
}

// Options 构建关卡时共享的运行参数
type Options struct {
	Logger *zap.SugaredLogger
	Clock  func() time.Time
	Limits world.Limits
}

// Default 内置关卡
func Default() (Document, error) {
	return Parse(defaultLevels)
}

// Load 读取关卡文件；path 为空时使用内置关卡
func Load(path string) (Document, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	doc, err := Parse(raw)
	if err != nil {
		return doc, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse 解析并校验关卡文档
func Parse(raw []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("levels: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return doc, err
	}
	return doc, nil
}

// Validate 结构校验（坐标越界在 Build 时由网格检查）
func (d Document) Validate() error {
	if len(d.Levels) == 0 {
		return fmt.Errorf("levels: no levels defined")
	}
	for i, lv := range d.Levels {
		if len(lv.Spawn) != 2 {
			return fmt.Errorf("levels[%d] %q: spawn must be [x, y]", i, lv.Name)
		}
		for j, obj := range lv.Objects {
			if err := obj.validate(len(d.Levels)); err != nil {
				return fmt.Errorf("levels[%d] %q objects[%d]: %w", i, lv.Name, j, err)
			}
		}
	}
	return nil
}

func (o ObjectSpec) validate(levels int) error {
	switch o.Type {
	case "text":
		if len(o.Box) != 2 && len(o.Box) != 4 {
			return fmt.Errorf("text box must be [x, y]")
		}
		if o.Size < 0 || o.Size > 255 {
			return fmt.Errorf("text size %d out of range", o.Size)
		}
	case "wall", "teleport", "area_counter", "button", "rainbow_button":
		if len(o.Box) != 4 {
			return fmt.Errorf("%s box must be [x, y, w, h]", o.Type)
		}
	default:
		return fmt.Errorf("unknown object type %q", o.Type)
	}
	if o.TargetLevel != nil && (*o.TargetLevel < 0 || *o.TargetLevel >= levels) {
		return fmt.Errorf("target_level %d: %w", *o.TargetLevel, world.ErrUnknownLevel)
	}
	if o.TargetPoint != nil && len(o.TargetPoint) != 2 {
		return fmt.Errorf("target_point must be [x, y]")
	}
	if p := o.TargetPoint; p != nil && (p[0] < 0 || p[0] >= world.MapWidth || p[1] < 0 || p[1] >= world.MapHeight) {
		return fmt.Errorf("target_point %v: %w", p, world.ErrOutOfBounds)
	}
	return nil
}

// Build 按文档顺序构建关卡；关卡 id 即其在文档中的下标
func Build(doc Document, opts Options) ([]*world.Level, error) {
	levels := make([]*world.Level, 0, len(doc.Levels))
	for i, lvl := range doc.Levels {
		l, err := world.NewLevel(world.LevelConfig{
			Name:   lvl.Name,
			Spawn:  world.Point{X: lvl.Spawn[0], Y: lvl.Spawn[1]},
			Limits: opts.Limits,
			Logger: opts.Logger,
			Clock:  opts.Clock,
		})
		if err != nil {
			return nil, fmt.Errorf("levels[%d]: %w", i, err)
		}
		for j, objSpec := range lvl.Objects {
			obj, err := objSpec.build(opts.Clock)
			if err != nil {
				return nil, fmt.Errorf("levels[%d] %q objects[%d]: %w", i, lvl.Name, j, err)
			}
			if err := l.AddGameObject(obj); err != nil {
				return nil, fmt.Errorf("levels[%d] objects[%d]: %w", i, j, err)
			}
		}
		levels = append(levels, l)
	}
	return levels, nil
}

func (o ObjectSpec) build(clock func() time.Time) (world.Object, error) {
	color, err := ParseColor(o.Color)
	if err != nil {
		return nil, err
	}
	box := world.Box{X: o.Box[0], Y: o.Box[1]}
	if len(o.Box) == 4 {
		box.W, box.H = o.Box[2], o.Box[3]
	}
	count := o.Count
	if o.CountCurrentYear {
		if clock == nil {
			clock = time.Now
		}
		count = clock().Year()
	}

	switch o.Type {
	case "text":
		return world.NewText(world.Point{X: box.X, Y: box.Y}, uint8(o.Size), o.Centered, o.Text, color), nil
	case "wall":
		return world.NewWall(box, color), nil
	case "teleport":
		var target world.TeleportTarget
		if o.TargetLevel != nil {
			id := *o.TargetLevel
			target.Level = &id
		}
		if o.TargetPoint != nil {
			target.Point = &world.Point{X: o.TargetPoint[0], Y: o.TargetPoint[1]}
		}
		tp, err := world.NewTeleport(box, target)
		if err != nil {
			return nil, err
		}
		return tp, nil
	case "area_counter":
		return world.NewAreaCounter(box, count, color), nil
	case "button":
		return world.NewButton(box, color, count, o.Speed), nil
	case "rainbow_button":
		return world.NewRainbowButton(box, color, count, o.Speed), nil
	}
	return nil, fmt.Errorf("unknown object type %q", o.Type)
}

var namedColors = map[string]uint32{
	"black":         world.ColorBlack,
	"white":         world.ColorWhite,
	"pink":          world.ColorPink,
	"portage":       world.ColorPortage,
	"yellow":        world.ColorYellow,
	"electric_blue": world.ColorElectricBlue,
	"violet":        world.ColorViolet,
	"neon_blue":     world.ColorNeonBlue,
}

// ParseColor 支持颜色名或 6 位十六进制（可带 #），空串为黑色
func ParseColor(s string) (uint32, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return world.ColorBlack, nil
	}
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 16, 32)
	if err != nil || v > 0xFFFFFF {
		return 0, fmt.Errorf("invalid color %q", s)
	}
	return uint32(v), nil
}
