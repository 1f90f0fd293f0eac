package config

// DefaultCategories are the Google place types crawled per city.
var DefaultCategories = []string{
	"tourist_attraction",
	"museum",
	"park",
	"art_gallery",
	"church",
	"amusement_park",
	"stadium",
}

// DefaultCities are the popular tourist cities crawled by default.
var DefaultCities = []City{
	{Name: "Bangkok", Lat: 13.7563, Lng: 100.5018},
	{Name: "Paris", Lat: 48.8566, Lng: 2.3522},
	{Name: "London", Lat: 51.5072, Lng: -0.1276},
	{Name: "Dubai", Lat: 25.2048, Lng: 55.2708},
	{Name: "Singapore", Lat: 1.3521, Lng: 103.8198},
	{Name: "Kuala Lumpur", Lat: 3.1390, Lng: 101.6869},
	{Name: "Istanbul", Lat: 41.0082, Lng: 28.9784},
	{Name: "New York", Lat: 40.7128, Lng: -74.0060},
	{Name: "Tokyo", Lat: 35.6895, Lng: 139.6917},
	{Name: "Seoul", Lat: 37.5665, Lng: 126.9780},
	{Name: "Hong Kong", Lat: 22.3193, Lng: 114.1694},
	{Name: "Barcelona", Lat: 41.3851, Lng: 2.1734},
	{Name: "Amsterdam", Lat: 52.3676, Lng: 4.9041},
	{Name: "Rome", Lat: 41.9028, Lng: 12.4964},
	{Name: "Milan", Lat: 45.4642, Lng: 9.1900},
	{Name: "Vienna", Lat: 48.2082, Lng: 16.3738},
	{Name: "Prague", Lat: 50.0755, Lng: 14.4378},
	{Name: "Madrid", Lat: 40.4168, Lng: -3.7038},
	{Name: "Ha Noi", Lat: 21.0278, Lng: 105.8342},
	{Name: "Sydney", Lat: -33.8688, Lng: 151.2093},
	{Name: "Melbourne", Lat: -37.8136, Lng: 144.9631},
	{Name: "Los Angeles", Lat: 34.0522, Lng: -118.2437},
	{Name: "Las Vegas", Lat: 36.1699, Lng: -115.1398},
	{Name: "Miami", Lat: 25.7617, Lng: -80.1918},
	{Name: "Orlando", Lat: 28.5383, Lng: -81.3792},
	{Name: "San Francisco", Lat: 37.7749, Lng: -122.4194},
	{Name: "Toronto", Lat: 43.6532, Lng: -79.3832},
	{Name: "Vancouver", Lat: 49.2827, Lng: -123.1207},
	{Name: "Berlin", Lat: 52.5200, Lng: 13.4050},
	{Name: "Munich", Lat: 48.1351, Lng: 11.5820},
	{Name: "Budapest", Lat: 47.4979, Lng: 19.0402},
	{Name: "Lisbon", Lat: 38.7223, Lng: -9.1393},
	{Name: "Copenhagen", Lat: 55.6761, Lng: 12.5683},
	{Name: "Stockholm", Lat: 59.3293, Lng: 18.0686},
	{Name: "Oslo", Lat: 59.9139, Lng: 10.7522},
	{Name: "Rio de Janeiro", Lat: -22.9068, Lng: -43.1729},
	{Name: "Sao Paulo", Lat: -23.5505, Lng: -46.6333},
	{Name: "Buenos Aires", Lat: -34.6037, Lng: -58.3816},
	{Name: "Mexico City", Lat: 19.4326, Lng: -99.1332},
	{Name: "Moscow", Lat: 55.7558, Lng: 37.6173},
	{Name: "Athens", Lat: 37.9838, Lng: 23.7275},
	{Name: "Shanghai", Lat: 31.2304, Lng: 121.4737},
	{Name: "Beijing", Lat: 39.9042, Lng: 116.4074},
	{Name: "Jerusalem", Lat: 31.7683, Lng: 35.2137},
	{Name: "Tel Aviv", Lat: 32.0853, Lng: 34.7818},
	{Name: "Doha", Lat: 25.2854, Lng: 51.5310},
	{Name: "Cape Town", Lat: -33.9249, Lng: 18.4241},
	{Name: "Johannesburg", Lat: -26.2041, Lng: 28.0473},
}
