package ui

func DetermineLayoutMode(cols, rows int) LayoutMode {
	if cols < 60 || rows < 18 {
		return LayoutTooSmall
	}
	if cols >= 110 && rows >= 24 {
		return LayoutWide
	}
	return LayoutMedium
}
