package amedas

import "fmt"

// Element is a displayable physical quantity.
type Element string

const (
	ElementTemperature   Element = "temperature"
	ElementPrecipitation Element = "precipitation"
	ElementWind          Element = "wind"
	ElementSunshine      Element = "sunshine"
	ElementHumidity      Element = "humidity"
	ElementPressure      Element = "pressure"
	ElementSnow          Element = "snow"
)

var elements = []Element{
	ElementTemperature,
	ElementPrecipitation,
	ElementWind,
	ElementSunshine,
	ElementHumidity,
	ElementPressure,
	ElementSnow,
}

// Elements returns all elements in display order.
func Elements() []Element {
	out := make([]Element, len(elements))
	copy(out, elements)
	return out
}

// ParseElement resolves an element by name.
func ParseElement(name string) (Element, error) {
	for _, e := range elements {
		if string(e) == name {
			return e, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownElement, name)
}

// Title returns the display title.
func (e Element) Title() string {
	switch e {
	case ElementTemperature:
		return "気温"
	case ElementPrecipitation:
		return "降水量"
	case ElementWind:
		return "風向風速"
	case ElementSunshine:
		return "日照"
	case ElementHumidity:
		return "湿度"
	case ElementPressure:
		return "気圧"
	case ElementSnow:
		return "積雪"
	default:
		return string(e)
	}
}

// Next cycles through the elements, wrapping around after the last one.
func (e Element) Next() Element {
	for i, el := range elements {
		if el == e {
			return elements[(i+1)%len(elements)]
		}
	}
	return ElementTemperature
}
