package export

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const polygonStyle = `<!DOCTYPE qgis PUBLIC 'http://mrcc.com/qgis.dtd' 'SYSTEM'>
<qgis styleCategories="Symbology">
  <renderer-v2 type="singleSymbol">
    <symbols>
      <symbol type="fill" name="0">
        <layer class="SimpleFill">
          <Option type="Map">
            <Option type="QString" name="color" value="43,131,186,120"/>
            <Option type="QString" name="outline_color" value="21,66,94,255"/>
            <Option type="QString" name="outline_width" value="0.4"/>
          </Option>
        </layer>
      </symbol>
    </symbols>
  </renderer-v2>
</qgis>
`

const pointStyle = `<!DOCTYPE qgis PUBLIC 'http://mrcc.com/qgis.dtd' 'SYSTEM'>
<qgis styleCategories="Symbology">
  <renderer-v2 type="singleSymbol">
    <symbols>
      <symbol type="marker" name="0">
        <layer class="SimpleMarker">
          <Option type="Map">
            <Option type="QString" name="name" value="circle"/>
            <Option type="QString" name="color" value="215,25,28,255"/>
            <Option type="QString" name="size" value="2.4"/>
          </Option>
        </layer>
      </symbol>
    </symbols>
  </renderer-v2>
</qgis>
`

// WriteStyleSidecars drops QGIS style files next to the exported layers.
// Styling is cosmetic; any failure is logged and swallowed.
func WriteStyleSidecars(dir string, layerFiles []string) {
	log := zap.L().With(zap.String("component", "export"))

	for _, name := range layerFiles {
		if !strings.HasSuffix(name, ".shp") {
			continue
		}
		style := pointStyle
		if strings.Contains(name, "polygon") || strings.Contains(name, "depression") {
			style = polygonStyle
		}
		qml := strings.TrimSuffix(name, ".shp") + ".qml"
		if err := os.WriteFile(filepath.Join(dir, qml), []byte(style), 0o644); err != nil {
			log.Warn("style sidecar not written", zap.String("file", qml), zap.Error(err))
		}
	}
}
