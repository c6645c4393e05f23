package domain

type Storage interface {
	Ensure() error
	List(prefix, suffix string) ([]Artifact, error)
	ListAll() ([]Artifact, error)
	Exists(filename string) (bool, error)
	Delete(filename string) error
	Path(filename string) string
}
