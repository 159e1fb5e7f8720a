package console

import (
	"fmt"
	"math"
	"strings"

	"github.com/luckinnnn/Model-Fine-Tuning-Platform/entity"
)

const (
	chartPadLeft   = 48.0
	chartPadRight  = 16.0
	chartPadTop    = 16.0
	chartPadBottom = 32.0
)

type ChartPoint struct {
	X    float64
	Y    float64
	Step int
	Loss float64
}

type ChartTick struct {
	Pos   float64
	Label string
}

// LossChart x 轴为 step，y 轴为 loss，坐标已换算成 SVG 像素
type LossChart struct {
	Width  float64
	Height float64
	Points []ChartPoint
	XTicks []ChartTick
	YTicks []ChartTick
}

func (c LossChart) Empty() bool {
	return len(c.Points) == 0
}

// Polyline 返回 SVG polyline 的 points 属性
func (c LossChart) Polyline() string {
	parts := make([]string, 0, len(c.Points))
	for _, p := range c.Points {
		parts = append(parts, fmt.Sprintf("%.1f,%.1f", p.X, p.Y))
	}
	return strings.Join(parts, " ")
}

func (c LossChart) PlotLeft() float64   { return chartPadLeft }
func (c LossChart) PlotRight() float64  { return c.Width - chartPadRight }
func (c LossChart) PlotTop() float64    { return chartPadTop }
func (c LossChart) PlotBottom() float64 { return c.Height - chartPadBottom }

func BuildLossChart(metrics []entity.TrainingMetric, width, height float64) LossChart {
	chart := LossChart{Width: width, Height: height}
	if len(metrics) == 0 {
		return chart
	}

	minStep, maxStep := metrics[0].Step, metrics[0].Step
	minLoss, maxLoss := metrics[0].Loss, metrics[0].Loss
	for _, m := range metrics[1:] {
		minStep = min(minStep, m.Step)
		maxStep = max(maxStep, m.Step)
		minLoss = math.Min(minLoss, m.Loss)
		maxLoss = math.Max(maxLoss, m.Loss)
	}

	plotW := width - chartPadLeft - chartPadRight
	plotH := height - chartPadTop - chartPadBottom
	stepSpan := float64(maxStep - minStep)
	lossSpan := maxLoss - minLoss

	xOf := func(step int) float64 {
		if stepSpan == 0 {
			return chartPadLeft + plotW/2
		}
		return chartPadLeft + float64(step-minStep)/stepSpan*plotW
	}
	yOf := func(loss float64) float64 {
		if lossSpan == 0 {
			return chartPadTop + plotH/2
		}
		// loss 越大越靠上
		return chartPadTop + (maxLoss-loss)/lossSpan*plotH
	}

	for _, m := range metrics {
		chart.Points = append(chart.Points, ChartPoint{X: xOf(m.Step), Y: yOf(m.Loss), Step: m.Step, Loss: m.Loss})
	}

	const ticks = 4
	for i := 0; i <= ticks; i++ {
		step := minStep + int(math.Round(stepSpan*float64(i)/ticks))
		chart.XTicks = append(chart.XTicks, ChartTick{Pos: xOf(step), Label: fmt.Sprintf("%d", step)})

		loss := minLoss + lossSpan*float64(i)/ticks
		chart.YTicks = append(chart.YTicks, ChartTick{Pos: yOf(loss), Label: fmt.Sprintf("%.2f", loss)})
	}
	return chart
}
