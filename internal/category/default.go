package category

// Default returns the built-in rule table for the fitness channel. An
// operator-provided YAML file replaces it entirely. Spelling variants
// ("#челлендж" / "#челендж") are separate entries; there is no fuzzy
// matching.
func Default() *Table {
	t, err := New([]Category{
		{
			Key:      "challenges",
			Name:     "🎯 ЧЕЛЛЕНДЖИ",
			Hashtags: []string{"#челлендж", "#челендж", "#вызов", "#challenge"},
			Keywords: []string{"челлендж", "челендж", "вызов", "задание", "марафон"},
		},
		{
			Key:      "power_results",
			Name:     "💪 СИЛОВЫЕ",
			Hashtags: []string{"#результаты", "#сила", "#рекорд", "#силовые"},
			Keywords: []string{"рекорд", "результат", "сила", "жим", "присед", "тяга", "масса"},
		},
		{
			Key:      "sport_tips",
			Name:     "💡 СПОРТ СОВЕТЫ",
			Hashtags: []string{"#советы", "#совет", "#техника", "#питание"},
			Keywords: []string{"совет", "техника", "питание", "восстановление", "программа"},
		},
		{
			Key:      "exercises",
			Name:     "🏋️‍♂️ УПРАЖНЕНИЯ",
			Hashtags: []string{"#упражнения", "#упражнение", "#тренировка"},
			Keywords: []string{"упражнение", "тренировка", "подход", "повторение", "разминка"},
		},
		{
			Key:      "memes",
			Name:     "😄 МЕМЫ",
			Hashtags: []string{"#мемы", "#мем", "#юмор"},
			Keywords: []string{"мем", "юмор", "смешно", "прикол"},
		},
		{
			Key:      "flood",
			Name:     "🌊 ФЛУДЩИНА",
			Hashtags: []string{"#флуд", "#флудщина", "#оффтоп"},
			Keywords: []string{"флуд", "оффтоп", "болтовня"},
		},
		{
			Key:      FallbackKey,
			Name:     "📁 ДРУГОЕ",
			Hashtags: []string{"#другое"},
			Keywords: nil,
		},
	})
	if err != nil {
		// The built-in table is validated by tests; reaching this is a bug.
		panic(err)
	}
	return t
}
