// Package geo вычисляет расстояния между географическими точками.
package geo

import (
	"math"

	"github.com/mmeshcher/nearbymart/internal/model"
)

// EarthRadiusKm средний радиус Земли, используемый формулой гаверсинусов.
const EarthRadiusKm = 6371.0

// Distance возвращает расстояние по большому кругу между точками в километрах.
// Результат не округляется; проверка диапазонов координат лежит на вызывающей стороне.
func Distance(a, b model.Coordinate) float64 {
	phi1 := radians(a.Latitude)
	phi2 := radians(b.Latitude)
	dPhi := radians(b.Latitude - a.Latitude)
	dLambda := radians(b.Longitude - a.Longitude)

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// Round2 округляет расстояние до сотых километра.
func Round2(km float64) float64 {
	return math.Round(km*100) / 100
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
