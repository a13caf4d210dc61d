package amedas

import (
	"math"
	"sort"
	"strconv"
)

// Shape is the marker glyph family.
type Shape string

const (
	ShapeCircle Shape = "circle"
	ShapeArrow  Shape = "arrow"
)

// bucketTable is an ascending breakpoint table. Bucket 0 starts at min
// (inclusive), bucket i>0 starts at thresholds[i-1]. Every bucket is half-open
// except the top one, which is closed at max when maxInclusive is set.
type bucketTable struct {
	min          float64
	thresholds   []float64
	max          float64
	maxInclusive bool
}

func (t bucketTable) count() int {
	return len(t.thresholds) + 1
}

func (t bucketTable) classify(v float64) (int, bool) {
	if math.IsNaN(v) || v < t.min {
		return 0, false
	}
	if v > t.max || (v == t.max && !t.maxInclusive) {
		return 0, false
	}
	// A boundary value belongs to the bucket it opens.
	return sort.Search(len(t.thresholds), func(i int) bool {
		return t.thresholds[i] > v
	}), true
}

var bucketTables = map[Element]bucketTable{
	ElementTemperature: {
		min:        math.Inf(-1),
		thresholds: []float64{-10, 0, 5, 10, 15, 20, 25, 30, 35},
		max:        math.Inf(1),
	},
	ElementPrecipitation: {
		min:        0,
		thresholds: []float64{1, 4, 16, 32},
		max:        math.Inf(1),
	},
	ElementWind: {
		min:        0,
		thresholds: []float64{5, 10, 15, 20, 25},
		max:        math.Inf(1),
	},
	// minutes of sunshine within the hour
	ElementSunshine: {
		min:          0,
		thresholds:   []float64{20, 40},
		max:          60,
		maxInclusive: true,
	},
	ElementHumidity: {
		min:          0,
		thresholds:   []float64{50, 75},
		max:          100,
		maxInclusive: true,
	},
	ElementPressure: {
		min: math.Inf(-1),
		max: math.Inf(1),
	},
	ElementSnow: {
		min:        0,
		thresholds: []float64{5, 20, 50, 100, 150, 200, 300},
		max:        math.Inf(1),
	},
}

// BucketCount returns the number of buckets defined for the element.
func BucketCount(element Element) int {
	t, ok := bucketTables[element]
	if !ok {
		return 0
	}
	return t.count()
}

// Classify maps a value in the element's unit to its zero-based bucket.
// It returns false when the value falls outside every range.
func Classify(element Element, value float64) (int, bool) {
	t, ok := bucketTables[element]
	if !ok {
		return 0, false
	}
	return t.classify(value)
}

// ShapeFor returns the glyph family of an element.
func ShapeFor(element Element) Shape {
	if element == ElementWind {
		return ShapeArrow
	}
	return ShapeCircle
}

// Key identifies one marker glyph. It carries no colour or pixel data; a
// renderer maps Identifier to whatever it draws.
type Key struct {
	Element   Element
	Shape     Shape
	Bucket    int
	Direction int // wind only, 0 = calm
}

// Identifier returns the stable renderer identifier, e.g. "temperature:6" or "wind:3:2".
func (k Key) Identifier() string {
	if k.Element == ElementWind {
		return string(k.Element) + ":" + strconv.Itoa(k.Direction) + ":" + strconv.Itoa(k.Bucket)
	}
	return string(k.Element) + ":" + strconv.Itoa(k.Bucket)
}

// RotationDegrees returns the clockwise rotation of an arrow glyph.
func (k Key) RotationDegrees() float64 {
	if k.Shape != ShapeArrow {
		return 0
	}
	return float64(k.Direction) * 360 / 16
}

func windKey(direction, bucket int) Key {
	shape := ShapeArrow
	if direction == 0 {
		shape = ShapeCircle
	}
	return Key{Element: ElementWind, Shape: shape, Bucket: bucket, Direction: direction}
}

// ClassifyObservation returns the marker key of an observation for an element.
// It does not apply HasValidData: a zero precipitation still yields bucket 0.
func ClassifyObservation(o Observation, element Element) (Key, bool) {
	v, ok := o.Value(element)
	if !ok {
		return Key{}, false
	}
	bucket, ok := Classify(element, v)
	if !ok {
		return Key{}, false
	}
	if element == ElementWind {
		if !validDirection(o.WindDirection) {
			return Key{}, false
		}
		return windKey(*o.WindDirection, bucket), true
	}
	return Key{Element: element, Shape: ShapeCircle, Bucket: bucket}, true
}

// AllKeys enumerates every key the classifier can produce, in element order,
// then direction, then bucket.
func AllKeys() []Key {
	var keys []Key
	for _, e := range elements {
		n := BucketCount(e)
		if e == ElementWind {
			for dir := 0; dir < len(CompassDirections); dir++ {
				for b := 0; b < n; b++ {
					keys = append(keys, windKey(dir, b))
				}
			}
			continue
		}
		for b := 0; b < n; b++ {
			keys = append(keys, Key{Element: e, Shape: ShapeCircle, Bucket: b})
		}
	}
	return keys
}
