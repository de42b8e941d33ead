package web

type Theme struct {
	Title           string
	Icon            string
	Footer          string
	Accent          string
	AccentHover     string
	ErrorText       string
	ErrorBackground string
}

func DefaultTheme() Theme {
	return Theme{
		Title:           "EPS to JPG Converter",
		Icon:            "🖼️",
		Footer:          "Made with ❤️ | EPS to JPG Converter",
		Accent:          "#4CAF50",
		AccentHover:     "#45a049",
		ErrorText:       "#ff4b4b",
		ErrorBackground: "#ffe5e5",
	}
}

func (t Theme) WithTitle(title string) Theme {
	if title != "" {
		t.Title = title
	}
	return t
}
