package entity

// FileKind тип загружаемого файла
type FileKind string

const (
	FilePrimary   FileKind = "primary"   // Спутниковый снимок (SAR)
	FileAuxiliary FileKind = "auxiliary" // Данные AIS о судах
)

// File загруженный пользователем файл
type File struct {
	Name string // имя файла
	Data []byte // содержимое
}

// Empty сообщает, что файл не передан или пустой
func (f *File) Empty() bool {
	return f == nil || len(f.Data) == 0
}

// Selection выбранные пользователем файлы, по одному каждого типа
type Selection struct {
	Primary   *File
	Auxiliary *File
}

// Set сохраняет файл под указанным типом, заменяя предыдущий.
// Для неизвестного типа возвращает false и ничего не меняет.
func (s *Selection) Set(kind FileKind, f *File) bool {
	switch kind {
	case FilePrimary:
		s.Primary = f
	case FileAuxiliary:
		s.Auxiliary = f
	default:
		return false
	}
	return true
}

// Get возвращает файл указанного типа или nil
func (s *Selection) Get(kind FileKind) *File {
	switch kind {
	case FilePrimary:
		return s.Primary
	case FileAuxiliary:
		return s.Auxiliary
	}
	return nil
}
