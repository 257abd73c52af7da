package quran

import "fmt"

// Reciter 是 alquran.cloud 的音频版本。
type Reciter struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

// Reciters 列出支持的诵读者，顺序固定。
var Reciters = []Reciter{
	{Name: "Mishary Rashid Alafasy", Key: "ar.alafasy"},
	{Name: "Abdul Basit (Murattal)", Key: "ar.abdulbasitmurattal"},
	{Name: "Mahmoud Khalil Al-Husary", Key: "ar.husary"},
	{Name: "Mohamed Siddiq Al-Minshawi", Key: "ar.minshawi"},
	{Name: "Saud Al-Shuraim", Key: "ar.shuraim"},
	{Name: "Maher Al Muaiqly", Key: "ar.mahermuaiqly"},
}

// DefaultReciter is used when a request names none.
const DefaultReciter = "ar.alafasy"

// ReciterByKey looks a reciter up by its edition key.
func ReciterByKey(key string) (Reciter, error) {
	for _, r := range Reciters {
		if r.Key == key {
			return r, nil
		}
	}
	return Reciter{}, fmt.Errorf("未知的诵读者 %q", key)
}
